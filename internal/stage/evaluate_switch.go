package stage

import (
	"context"
	"sync"
)

const evaluateSwitchStage = "evaluate-switch"

func evaluateSwitchRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	mode, embed := errorMode(in.Meta)

	type res struct {
		idx   int
		rec   Record
		envE  *Error
		fatal error
	}
	workers := getWorkers(in.Meta)
	jobs := make(chan int)
	results := make(chan res)
	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for item := range jobs {
			rec := in.Records[item]
			out, envE, fatal := processEvaluateRecord(rec, in.Meta, mode, embed)
			results <- res{idx: item, rec: out, envE: envE, fatal: fatal}
		}
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker()
	}
	go func() {
		for i := range in.Records {
			jobs <- i
		}
		close(jobs)
	}()
	var firstErr error
	var envErrs []Error
	out := in
	out.Records = make([]Record, len(in.Records))
	for i := 0; i < len(in.Records); i++ {
		rr := <-results
		out.Records[rr.idx] = rr.rec
		if rr.envE != nil {
			envErrs = append(envErrs, *rr.envE)
		}
		if firstErr == nil && rr.fatal != nil {
			firstErr = rr.fatal
		}
	}
	wg.Wait()
	if firstErr != nil {
		return Envelope{}, firstErr
	}
	if len(envErrs) > 0 {
		out.Errors = append(out.Errors, envErrs...)
		SortEnvelopeErrors(&out)
	}
	return out, nil
}

func init() { Register(evaluateSwitchStage, evaluateSwitchRunner) }
