package stage

import (
	"fmt"

	"github.com/flarebyte/maat-arbiter/switchcase"
)

// processEvaluateRecord builds a switchcase matcher for one parsed
// definition and resolves it. Case bodies are evaluated eagerly in
// registration order, regardless of which case ends up matching, so
// Lua side effects observe the same ordering as the declared cases.
func processEvaluateRecord(rec Record, meta *Meta, mode string, embed bool) (Record, *Error, error) {
	if rec.Error != nil {
		return rec, nil, nil
	}
	if rec.Definition == nil {
		return failEvaluate(rec, mode, embed, "missing definition")
	}
	def := rec.Definition

	var opts []switchcase.Option
	if strictResolution(meta, def) {
		opts = append(opts, switchcase.Strict())
	}
	sw := switchcase.New(def.Subject, opts...)

	ev := newBodyEvaluator(evaluateSwitchStage, rec.Locator, meta, def.Subject, def.Scope)
	defer ev.close()

	for i, cd := range def.Cases {
		result, violation, err := ev.evalBody(cd.Body)
		if err != nil {
			return failEvaluate(rec, mode, embed, fmt.Sprintf("cases[%d]: %v", i, err))
		}
		if violation != "" {
			return failEvaluate(rec, mode, embed, fmt.Sprintf("cases[%d]: %s", i, violation))
		}
		keys := make([]any, 0, len(cd.Keys)+1)
		keys = append(keys, cd.Keys...)
		if cd.Default {
			keys = append(keys, switchcase.Default)
		}
		if err := sw.Case(keys, result); err != nil {
			return failEvaluate(rec, mode, embed, fmt.Sprintf("cases[%d]: %v", i, err))
		}
	}

	out, err := sw.Resolve()
	if err != nil {
		return failEvaluate(rec, mode, embed, err.Error())
	}
	rr := rec
	rr.Outcome = outcomeFor(def, out)
	return rr, nil, nil
}

// outcomeFor reports how the output was selected: the first declared
// key equal to the subject, else the default case, else none.
func outcomeFor(def *Definition, out switchcase.Output) *Outcome {
	o := &Outcome{Output: out.Value(), Matched: "none"}
	for _, cd := range def.Cases {
		for _, k := range cd.Keys {
			if k == def.Subject {
				o.Matched = "case"
				o.Key = k
				return o
			}
		}
	}
	if out.None() {
		return o
	}
	o.Matched = "default"
	return o
}

func failEvaluate(rec Record, mode string, embed bool, msg string) (Record, *Error, error) {
	msg = sanitizeErrorMessage(msg)
	if mode == "keep-going" {
		out := Record{Locator: rec.Locator, Definition: rec.Definition}
		if embed {
			out.Error = &RecError{Stage: evaluateSwitchStage, Message: msg}
		} else {
			out.Error = &RecError{Stage: evaluateSwitchStage, Message: "failed"}
		}
		return out, &Error{Stage: evaluateSwitchStage, Locator: rec.Locator, Message: msg}, nil
	}
	return Record{}, nil, fmt.Errorf("%s: %s: %s", evaluateSwitchStage, rec.Locator, msg)
}
