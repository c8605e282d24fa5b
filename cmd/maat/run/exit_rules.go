package run

import "github.com/flarebyte/maat-arbiter/internal/stage"

const (
	exitCodeSuccess = 0
	exitCodeExecErr = 1
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

func keepGoingMode(meta *stage.Meta) bool {
	return meta != nil && meta.Errors != nil && meta.Errors.Mode == "keep-going"
}

func countRecordResults(records []stage.Record) (successes int, failures int) {
	for _, r := range records {
		if r.Error != nil {
			failures++
		} else {
			successes++
		}
	}
	return
}

func hasActionFailures(env stage.Envelope) bool {
	_, failures := countRecordResults(env.Records)
	return failures > 0 || len(env.Errors) > 0
}

// evaluateRunExit maps the final envelope to the process exit contract.
// Fail-fast runs surface fatal errors before reaching here; keep-going
// runs fail only when nothing at all succeeded.
func evaluateRunExit(env stage.Envelope) error {
	if !keepGoingMode(env.Meta) {
		return nil
	}
	if !hasActionFailures(env) {
		return nil
	}
	successes, _ := countRecordResults(env.Records)
	if successes > 0 {
		return nil
	}
	return runExitError{code: exitCodeExecErr, msg: "keep-going: no successful records"}
}
