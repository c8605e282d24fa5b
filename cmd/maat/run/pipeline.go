package run

import (
	"context"

	"github.com/flarebyte/maat-arbiter/internal/stage"
)

// executePipeline runs the fixed evaluation pipeline for `maat run`.
func executePipeline(ctx context.Context, cfgPath string, meta *stage.Meta) (stage.Envelope, error) {
	if meta == nil {
		meta = &stage.Meta{ConfigPath: cfgPath}
	}
	in := stage.Envelope{Records: []stage.Record{}, Meta: meta}
	stages := []string{
		"validate-config",
		"discover-definitions",
		"parse-definitions",
		"evaluate-switch",
		"write-output",
	}
	return runStages(ctx, in, stages)
}

// runStages executes the provided list of stage names in order.
func runStages(ctx context.Context, in stage.Envelope, stages []string) (stage.Envelope, error) {
	out := in
	var err error
	for _, name := range stages {
		out, err = stage.Run(ctx, name, out, stage.Deps{})
		if err != nil {
			return stage.Envelope{}, err
		}
	}
	return out, nil
}
