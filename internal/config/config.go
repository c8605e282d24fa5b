package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadAndValidate loads a CUE file and validates the minimal required schema.
// Required fields:
//   - configVersion: string
//   - action: string
func LoadAndValidate(path string) error {
	_, err := compile(path)
	return err
}

func compile(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return cue.Value{}, err
	}
	if err := requireStringField(v, "action"); err != nil {
		return cue.Value{}, err
	}
	return v, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// Minimal holds the validated subset of the runner config.
type Minimal struct {
	ConfigVersion string
	Action        string
	Discovery     Discovery
	Resolution    Resolution
	Errors        Errors
	Limits        Limits
	LuaSandbox    LuaSandbox
	Output        Output
	Workers       int
	HasWorkers    bool
}

// Discovery holds optional discovery config and presence flags.
type Discovery struct {
	Root              string
	NoGitignore       bool
	FollowSymlinks    bool
	HasRoot           bool
	HasNoGitignore    bool
	HasFollowSymlinks bool
}

// Resolution holds the optional strict resolution flag.
type Resolution struct {
	Strict    bool
	HasStrict bool
}

// Errors holds optional error mode config.
type Errors struct {
	Mode           string
	EmbedErrors    bool
	HasMode        bool
	HasEmbedErrors bool
}

// Limits holds optional size limits.
type Limits struct {
	MaxYAMLBytes    int
	HasMaxYAMLBytes bool
}

// LuaSandbox holds optional sandbox bounds for case body evaluation.
type LuaSandbox struct {
	TimeoutMs              int
	InstructionLimit       int
	MemoryLimitBytes       int
	Base                   bool
	Table                  bool
	String                 bool
	Math                   bool
	DeterministicRandom    bool
	Has                    bool
	HasLibs                bool
	HasDeterministicRandom bool
}

// Output holds optional output config.
type Output struct {
	Out       string
	Pretty    bool
	Lines     bool
	HasOut    bool
	HasPretty bool
	HasLines  bool
}

// ParseMinimal validates and extracts minimal values from the CUE config.
func ParseMinimal(path string) (Minimal, error) {
	v, err := compile(path)
	if err != nil {
		return Minimal{}, err
	}
	var m Minimal
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&m.ConfigVersion); err != nil {
		return Minimal{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if err := v.LookupPath(cue.ParsePath("action")).Decode(&m.Action); err != nil {
		return Minimal{}, fmt.Errorf("invalid value for action: %v", err)
	}
	parseDiscovery(v, &m)
	parseResolution(v, &m)
	parseErrors(v, &m)
	parseLimits(v, &m)
	parseLuaSandbox(v, &m)
	parseOutput(v, &m)
	if wv := v.LookupPath(cue.ParsePath("workers")); wv.Exists() && wv.Kind() == cue.IntKind {
		if err := wv.Decode(&m.Workers); err == nil {
			m.HasWorkers = true
		}
	}
	return m, nil
}

func parseDiscovery(v cue.Value, m *Minimal) {
	dv := v.LookupPath(cue.ParsePath("discovery"))
	if !dv.Exists() {
		return
	}
	if rv := dv.LookupPath(cue.ParsePath("root")); rv.Exists() && rv.Kind() == cue.StringKind {
		if err := rv.Decode(&m.Discovery.Root); err == nil {
			m.Discovery.HasRoot = true
		}
	}
	if ngv := dv.LookupPath(cue.ParsePath("noGitignore")); ngv.Exists() && ngv.Kind() == cue.BoolKind {
		if err := ngv.Decode(&m.Discovery.NoGitignore); err == nil {
			m.Discovery.HasNoGitignore = true
		}
	}
	if fsv := dv.LookupPath(cue.ParsePath("followSymlinks")); fsv.Exists() && fsv.Kind() == cue.BoolKind {
		if err := fsv.Decode(&m.Discovery.FollowSymlinks); err == nil {
			m.Discovery.HasFollowSymlinks = true
		}
	}
}

func parseResolution(v cue.Value, m *Minimal) {
	rv := v.LookupPath(cue.ParsePath("resolution"))
	if !rv.Exists() {
		return
	}
	if sv := rv.LookupPath(cue.ParsePath("strict")); sv.Exists() && sv.Kind() == cue.BoolKind {
		if err := sv.Decode(&m.Resolution.Strict); err == nil {
			m.Resolution.HasStrict = true
		}
	}
}

func parseErrors(v cue.Value, m *Minimal) {
	ev := v.LookupPath(cue.ParsePath("errors"))
	if !ev.Exists() {
		return
	}
	if mv := ev.LookupPath(cue.ParsePath("mode")); mv.Exists() && mv.Kind() == cue.StringKind {
		if err := mv.Decode(&m.Errors.Mode); err == nil {
			m.Errors.HasMode = true
		}
	}
	if bv := ev.LookupPath(cue.ParsePath("embedErrors")); bv.Exists() && bv.Kind() == cue.BoolKind {
		if err := bv.Decode(&m.Errors.EmbedErrors); err == nil {
			m.Errors.HasEmbedErrors = true
		}
	}
}

func parseLimits(v cue.Value, m *Minimal) {
	lv := v.LookupPath(cue.ParsePath("limits"))
	if !lv.Exists() {
		return
	}
	if mv := lv.LookupPath(cue.ParsePath("maxYAMLBytes")); mv.Exists() && mv.Kind() == cue.IntKind {
		if err := mv.Decode(&m.Limits.MaxYAMLBytes); err == nil {
			m.Limits.HasMaxYAMLBytes = true
		}
	}
}

func parseLuaSandbox(v cue.Value, m *Minimal) {
	sv := v.LookupPath(cue.ParsePath("luaSandbox"))
	if !sv.Exists() {
		return
	}
	m.LuaSandbox.Has = true
	m.LuaSandbox.TimeoutMs = -1
	m.LuaSandbox.InstructionLimit = -1
	m.LuaSandbox.MemoryLimitBytes = -1
	if tv := sv.LookupPath(cue.ParsePath("timeoutMs")); tv.Exists() && tv.Kind() == cue.IntKind {
		_ = tv.Decode(&m.LuaSandbox.TimeoutMs)
	}
	if iv := sv.LookupPath(cue.ParsePath("instructionLimit")); iv.Exists() && iv.Kind() == cue.IntKind {
		_ = iv.Decode(&m.LuaSandbox.InstructionLimit)
	}
	if mv := sv.LookupPath(cue.ParsePath("memoryLimitBytes")); mv.Exists() && mv.Kind() == cue.IntKind {
		_ = mv.Decode(&m.LuaSandbox.MemoryLimitBytes)
	}
	if lv := sv.LookupPath(cue.ParsePath("libs")); lv.Exists() {
		m.LuaSandbox.HasLibs = true
		decodeBool(lv, "base", &m.LuaSandbox.Base)
		decodeBool(lv, "table", &m.LuaSandbox.Table)
		decodeBool(lv, "string", &m.LuaSandbox.String)
		decodeBool(lv, "math", &m.LuaSandbox.Math)
	}
	if dv := sv.LookupPath(cue.ParsePath("deterministicRandom")); dv.Exists() && dv.Kind() == cue.BoolKind {
		if err := dv.Decode(&m.LuaSandbox.DeterministicRandom); err == nil {
			m.LuaSandbox.HasDeterministicRandom = true
		}
	}
}

func parseOutput(v cue.Value, m *Minimal) {
	ov := v.LookupPath(cue.ParsePath("output"))
	if !ov.Exists() {
		return
	}
	if sv := ov.LookupPath(cue.ParsePath("out")); sv.Exists() && sv.Kind() == cue.StringKind {
		if err := sv.Decode(&m.Output.Out); err == nil {
			m.Output.HasOut = true
		}
	}
	if pv := ov.LookupPath(cue.ParsePath("pretty")); pv.Exists() && pv.Kind() == cue.BoolKind {
		if err := pv.Decode(&m.Output.Pretty); err == nil {
			m.Output.HasPretty = true
		}
	}
	if lv := ov.LookupPath(cue.ParsePath("lines")); lv.Exists() && lv.Kind() == cue.BoolKind {
		if err := lv.Decode(&m.Output.Lines); err == nil {
			m.Output.HasLines = true
		}
	}
}

func decodeBool(v cue.Value, name string, dst *bool) {
	if bv := v.LookupPath(cue.ParsePath(name)); bv.Exists() && bv.Kind() == cue.BoolKind {
		_ = bv.Decode(dst)
	}
}
