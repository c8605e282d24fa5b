package run

import (
	"fmt"

	"github.com/flarebyte/maat-arbiter/internal/stage"
	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	flagRoot     string
	flagNoGit    bool
	flagSymlinks bool
	flagOut      string
	flagPretty   bool
	flagLines    bool
	flagWorkers  int
)

// Cmd represents the `maat run` command.
var Cmd = &cobra.Command{
	Use:           "run",
	Short:         "Evaluate switch definitions found under the discovery root",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return fmt.Errorf("missing required flag: --config")
		}
		env, err := executePipeline(cmd.Context(), cfgPath, flagEnvelope())
		if err != nil {
			return err
		}
		return evaluateRunExit(env)
	},
}

// flagEnvelope builds the initial envelope meta from CLI flags; the
// validate-config stage fills in whatever the flags left unset.
func flagEnvelope() *stage.Meta {
	meta := &stage.Meta{ConfigPath: cfgPath, Workers: flagWorkers}
	if flagRoot != "" || flagNoGit || flagSymlinks {
		meta.Discovery = &stage.DiscoveryMeta{
			Root:           flagRoot,
			NoGitignore:    flagNoGit,
			FollowSymlinks: flagSymlinks,
		}
	}
	if flagOut != "" || flagPretty || flagLines {
		meta.Output = &stage.OutputMeta{Out: flagOut, Pretty: flagPretty, Lines: flagLines}
	}
	return meta
}

func init() {
	Cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().StringVar(&flagRoot, "root", "", "Discovery root for *.maat.yaml definitions")
	Cmd.Flags().BoolVar(&flagNoGit, "no-gitignore", false, "Do not honor .gitignore during discovery")
	Cmd.Flags().BoolVar(&flagSymlinks, "follow-symlinks", false, "Follow directory symlinks during discovery")
	Cmd.Flags().StringVar(&flagOut, "out", "", "Output path ('-' for stdout)")
	Cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Pretty JSON output")
	Cmd.Flags().BoolVar(&flagLines, "lines", false, "NDJSON output, one line per record")
	Cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Worker count for per-record stages")
}
