package run

import (
	"testing"

	"github.com/flarebyte/maat-arbiter/internal/stage"
)

func keepGoingMeta() *stage.Meta {
	return &stage.Meta{
		Config: &stage.ConfigMeta{Action: "evaluate"},
		Errors: &stage.ErrorsMeta{Mode: "keep-going"},
	}
}

func assertExitError(t *testing.T, err error, wantMsg string, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != wantMsg {
		t.Fatalf("unexpected error: %v", err)
	}
	ec, ok := err.(interface{ ExitCode() int })
	if !ok || ec.ExitCode() != wantCode {
		t.Fatalf("unexpected exit code")
	}
}

func TestEvaluateRunExit_KeepGoing_SuccessRecord(t *testing.T) {
	env := stage.Envelope{
		Meta:    keepGoingMeta(),
		Records: []stage.Record{{Locator: "a.maat.yaml"}},
		Errors:  []stage.Error{{Stage: "evaluate-switch", Locator: "b.maat.yaml", Message: "boom"}},
	}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_KeepGoing_AllFailed(t *testing.T) {
	env := stage.Envelope{
		Meta:    keepGoingMeta(),
		Records: []stage.Record{{Locator: "a.maat.yaml", Error: &stage.RecError{Stage: "parse-definitions", Message: "m"}}},
		Errors:  []stage.Error{{Stage: "parse-definitions", Locator: "a.maat.yaml", Message: "m"}},
	}
	assertExitError(t, evaluateRunExit(env), "keep-going: no successful records", exitCodeExecErr)
}

func TestEvaluateRunExit_KeepGoing_NoRecordsNoErrors(t *testing.T) {
	env := stage.Envelope{Meta: keepGoingMeta()}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_FailFastMode(t *testing.T) {
	env := stage.Envelope{
		Meta: &stage.Meta{
			Config: &stage.ConfigMeta{Action: "evaluate"},
			Errors: &stage.ErrorsMeta{Mode: "fail-fast"},
		},
		Errors: []stage.Error{{Stage: "evaluate-switch", Message: "m"}},
	}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
