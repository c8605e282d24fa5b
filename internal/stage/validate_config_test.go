package stage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRunnerConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "maat.cue")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestValidateConfig_MissingConfigPath(t *testing.T) {
	_, err := ValidateConfig(context.Background(), Envelope{Meta: &Meta{}}, Deps{})
	if err == nil || err.Error() != "missing required meta.configPath" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConfig_UnsupportedAction(t *testing.T) {
	p := writeRunnerConfig(t, "configVersion: \"1\"\naction: \"transmute\"\n")
	_, err := ValidateConfig(context.Background(), Envelope{Meta: &Meta{ConfigPath: p}}, Deps{})
	if err == nil || !strings.Contains(err.Error(), "unsupported action: transmute") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConfig_ProjectsSettings(t *testing.T) {
	p := writeRunnerConfig(t, `
configVersion: "1"
action:        "evaluate"
discovery: root: "./defs"
resolution: strict: true
errors: {
	mode:        "keep-going"
	embedErrors: true
}
limits: maxYAMLBytes: 2048
`)
	out, err := ValidateConfig(context.Background(), Envelope{Meta: &Meta{ConfigPath: p}}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Meta.ConfigPath != "" {
		t.Fatalf("expected configPath cleared, got %q", out.Meta.ConfigPath)
	}
	if out.Meta.Config == nil || out.Meta.Config.Action != "evaluate" {
		t.Fatalf("unexpected config meta: %+v", out.Meta.Config)
	}
	if out.Meta.Discovery == nil || out.Meta.Discovery.Root != "./defs" {
		t.Fatalf("unexpected discovery meta: %+v", out.Meta.Discovery)
	}
	if out.Meta.Resolution == nil || !out.Meta.Resolution.Strict {
		t.Fatalf("unexpected resolution meta: %+v", out.Meta.Resolution)
	}
	if out.Meta.Errors == nil || out.Meta.Errors.Mode != "keep-going" || !out.Meta.Errors.EmbedErrors {
		t.Fatalf("unexpected errors meta: %+v", out.Meta.Errors)
	}
	if out.Meta.Limits == nil || out.Meta.Limits.MaxYAMLBytes != 2048 {
		t.Fatalf("unexpected limits meta: %+v", out.Meta.Limits)
	}
}

func TestValidateConfig_FlagsWinOverConfig(t *testing.T) {
	p := writeRunnerConfig(t, `
configVersion: "1"
action:        "evaluate"
discovery: root: "./from-config"
output: out: "from-config.json"
workers: 8
`)
	in := Envelope{Meta: &Meta{
		ConfigPath: p,
		Discovery:  &DiscoveryMeta{Root: "./from-flag"},
		Output:     &OutputMeta{Out: "from-flag.json"},
		Workers:    2,
	}}
	out, err := ValidateConfig(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Meta.Discovery.Root != "./from-flag" {
		t.Fatalf("expected flag root to win, got %q", out.Meta.Discovery.Root)
	}
	if out.Meta.Output.Out != "from-flag.json" {
		t.Fatalf("expected flag out to win, got %q", out.Meta.Output.Out)
	}
	if out.Meta.Workers != 2 {
		t.Fatalf("expected flag workers to win, got %d", out.Meta.Workers)
	}
}

func TestValidateConfig_SandboxDefaultsWhenLibsAbsent(t *testing.T) {
	p := writeRunnerConfig(t, `
configVersion: "1"
action:        "evaluate"
luaSandbox: timeoutMs: 250
`)
	out, err := ValidateConfig(context.Background(), Envelope{Meta: &Meta{ConfigPath: p}}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sb := out.Meta.LuaSandbox
	if sb == nil || sb.TimeoutMs != 250 {
		t.Fatalf("unexpected sandbox meta: %+v", sb)
	}
	if sb.InstructionLimit != -1 || sb.MemoryLimitBytes != -1 {
		t.Fatalf("expected absent limits to stay -1, got %+v", sb)
	}
	if !sb.Libs.Base || !sb.Libs.Table || !sb.Libs.String || !sb.Libs.Math {
		t.Fatalf("expected full default allowlist, got %+v", sb.Libs)
	}
}
