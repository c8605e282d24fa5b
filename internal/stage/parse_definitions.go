package stage

import (
	"context"
	"sort"
	"sync"
)

func parseDefinitionsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	root := determineRoot(in)
	mode, embed := errorMode(in.Meta)
	maxBytes := maxYAMLBytes(in.Meta)

	type res struct {
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
			out, envE, fatal := processDefinitionRecord(rec, root, mode, embed, maxBytes)
			results <- res{rec: out, envE: envE, fatal: fatal}
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
	outs := make([]Record, 0, len(in.Records))
	for i := 0; i < len(in.Records); i++ {
		rr := <-results
		if rr.envE != nil {
			envErrs = append(envErrs, *rr.envE)
		}
		if rr.rec.Locator != "" {
			outs = append(outs, rr.rec)
		}
		if firstErr == nil && rr.fatal != nil {
			firstErr = rr.fatal
		}
	}
	wg.Wait()
	if firstErr != nil {
		return Envelope{}, firstErr
	}

	sort.Slice(outs, func(i, j int) bool { return outs[i].Locator < outs[j].Locator })

	out := in
	out.Records = outs
	if len(envErrs) > 0 {
		out.Errors = append(out.Errors, envErrs...)
		SortEnvelopeErrors(&out)
	}
	return out, nil
}

func init() { Register(parseDefinitionsStage, parseDefinitionsRunner) }
