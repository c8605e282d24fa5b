package diagnose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/flarebyte/maat-arbiter/internal/stage"
	"github.com/spf13/cobra"
)

var (
	flagStage  string
	flagIn     string
	flagConfig string
	flagRoot   string
	flagNoGit  bool
)

// Cmd implements `maat diagnose`: run a single pipeline stage against an
// input envelope and print the resulting envelope as one JSON line.
var Cmd = &cobra.Command{
	Use:           "diagnose",
	Short:         "Run a single diagnostic stage",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagStage == "" {
			return errors.New("missing required flag: --stage")
		}
		env, err := prepareDiagnoseInput(flagIn, flagConfig, flagRoot, flagNoGit)
		if err != nil {
			return err
		}
		out, err := stage.Run(cmd.Context(), flagStage, env, stage.Deps{})
		if err != nil {
			return err
		}
		return printEnvelopeOneLine(os.Stdout, out)
	},
}

func init() {
	Cmd.Flags().StringVar(&flagStage, "stage", "", "Stage name (required)")
	Cmd.Flags().StringVar(&flagIn, "in", "", "Path to input envelope JSON")
	Cmd.Flags().StringVar(&flagConfig, "config", "", "Config path used when --in omitted")
	Cmd.Flags().StringVar(&flagRoot, "root", ".", "Discovery root (used when --in omitted)")
	Cmd.Flags().BoolVar(&flagNoGit, "no-gitignore", false, "Disable .gitignore (used when --in omitted)")
}

func prepareDiagnoseInput(inPath, cfg, root string, noGit bool) (stage.Envelope, error) {
	if inPath != "" {
		b, err := os.ReadFile(inPath)
		if err != nil {
			return stage.Envelope{}, fmt.Errorf("failed to read input: %w", err)
		}
		var env stage.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			return stage.Envelope{}, fmt.Errorf("invalid input JSON: %v", err)
		}
		return env, nil
	}
	env := stage.Envelope{Records: []stage.Record{}}
	if cfg != "" {
		env.Meta = &stage.Meta{ConfigPath: cfg}
	}
	if root != "" || noGit {
		if env.Meta == nil {
			env.Meta = &stage.Meta{}
		}
		env.Meta.Discovery = &stage.DiscoveryMeta{}
		if root != "" {
			env.Meta.Discovery.Root = root
		}
		if noGit {
			env.Meta.Discovery.NoGitignore = true
		}
	}
	return env, nil
}

func printEnvelopeOneLine(w io.Writer, env stage.Envelope) error {
	if env.Meta == nil {
		env.Meta = &stage.Meta{}
	}
	env.Meta.ContractVersion = "1"
	stage.SortEnvelopeErrors(&env)
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, string(b)); err != nil {
		return err
	}
	return nil
}
