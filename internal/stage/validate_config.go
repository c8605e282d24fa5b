package stage

import (
	"context"
	"fmt"

	"github.com/flarebyte/maat-arbiter/internal/config"
)

const validateConfigStage = "validate-config"

// ValidateConfig is the stage implementation for "validate-config".
// It parses the CUE config referenced by meta.configPath and projects
// the validated settings onto the envelope meta, without overriding
// values already set by CLI flags.
func ValidateConfig(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || in.Meta.ConfigPath == "" {
		return Envelope{}, ErrMissingConfigPath{}
	}
	min, err := config.ParseMinimal(in.Meta.ConfigPath)
	if err != nil {
		return Envelope{}, err
	}
	if min.Action != "evaluate" {
		return Envelope{}, fmt.Errorf("%s: unsupported action: %s", validateConfigStage, min.Action)
	}
	out := in
	out.Meta = applyConfig(in.Meta, min)
	// Do not persist configPath in output.
	out.Meta.ConfigPath = ""
	return out, nil
}

func applyConfig(meta *Meta, min config.Minimal) *Meta {
	m := &Meta{}
	if meta != nil {
		*m = *meta
	}
	m.Config = &ConfigMeta{ConfigVersion: min.ConfigVersion, Action: min.Action}
	if min.Discovery.HasRoot || min.Discovery.HasNoGitignore || min.Discovery.HasFollowSymlinks {
		if m.Discovery == nil {
			m.Discovery = &DiscoveryMeta{}
		}
		if min.Discovery.HasRoot && m.Discovery.Root == "" {
			m.Discovery.Root = min.Discovery.Root
		}
		if min.Discovery.HasNoGitignore && !m.Discovery.NoGitignore {
			m.Discovery.NoGitignore = min.Discovery.NoGitignore
		}
		if min.Discovery.HasFollowSymlinks && !m.Discovery.FollowSymlinks {
			m.Discovery.FollowSymlinks = min.Discovery.FollowSymlinks
		}
	}
	if min.Resolution.HasStrict {
		m.Resolution = &ResolutionMeta{Strict: min.Resolution.Strict}
	}
	if min.Errors.HasMode || min.Errors.HasEmbedErrors {
		m.Errors = &ErrorsMeta{Mode: min.Errors.Mode, EmbedErrors: min.Errors.EmbedErrors}
	}
	if min.Limits.HasMaxYAMLBytes {
		m.Limits = &LimitsMeta{MaxYAMLBytes: min.Limits.MaxYAMLBytes}
	}
	if min.LuaSandbox.Has {
		sb := &LuaSandboxMeta{
			TimeoutMs:           min.LuaSandbox.TimeoutMs,
			InstructionLimit:    min.LuaSandbox.InstructionLimit,
			MemoryLimitBytes:    min.LuaSandbox.MemoryLimitBytes,
			DeterministicRandom: true,
		}
		if min.LuaSandbox.HasLibs {
			sb.Libs = LuaSandboxLibsMeta{
				Base:   min.LuaSandbox.Base,
				Table:  min.LuaSandbox.Table,
				String: min.LuaSandbox.String,
				Math:   min.LuaSandbox.Math,
			}
		} else {
			sb.Libs = LuaSandboxLibsMeta{Base: true, Table: true, String: true, Math: true}
		}
		if min.LuaSandbox.HasDeterministicRandom {
			sb.DeterministicRandom = min.LuaSandbox.DeterministicRandom
		}
		m.LuaSandbox = sb
	}
	if min.Output.HasOut || min.Output.HasPretty || min.Output.HasLines {
		if m.Output == nil {
			m.Output = &OutputMeta{}
		}
		if min.Output.HasOut && m.Output.Out == "" {
			m.Output.Out = min.Output.Out
		}
		if min.Output.HasPretty && !m.Output.Pretty {
			m.Output.Pretty = min.Output.Pretty
		}
		if min.Output.HasLines && !m.Output.Lines {
			m.Output.Lines = min.Output.Lines
		}
	}
	if min.HasWorkers && m.Workers == 0 {
		m.Workers = min.Workers
	}
	return m
}

// ErrMissingConfigPath is returned when the envelope lacks a config path.
type ErrMissingConfigPath struct{}

func (ErrMissingConfigPath) Error() string { return "missing required meta.configPath" }

func init() { Register(validateConfigStage, ValidateConfig) }
