package stage

// Error represents a stage error attached to the envelope.
type Error struct {
	Stage   string `json:"stage"`
	Locator string `json:"locator,omitempty"`
	Message string `json:"message"`
}

// ConfigMeta holds validated config essentials.
type ConfigMeta struct {
	ConfigVersion string `json:"configVersion"`
	Action        string `json:"action"`
}

// DiscoveryMeta holds definition discovery options.
type DiscoveryMeta struct {
	Root           string `json:"root,omitempty"`
	NoGitignore    bool   `json:"noGitignore,omitempty"`
	FollowSymlinks bool   `json:"followSymlinks,omitempty"`
}

// ResolutionMeta holds switch resolution options. Strict disables the
// defaults-to-none behavior: an unmatched subject with no default case
// becomes an error instead of a null output.
type ResolutionMeta struct {
	Strict bool `json:"strict,omitempty"`
}

// ErrorsMeta selects the error handling mode across stages.
type ErrorsMeta struct {
	Mode        string `json:"mode,omitempty"`
	EmbedErrors bool   `json:"embedErrors,omitempty"`
}

// OutputMeta holds output settings for the write-output stage.
type OutputMeta struct {
	Out    string `json:"out,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
	Lines  bool   `json:"lines,omitempty"`
}

// LimitsMeta holds size limits for definition parsing.
type LimitsMeta struct {
	MaxYAMLBytes int `json:"maxYAMLBytes,omitempty"`
}

// LuaSandboxLibsMeta is the Lua standard library allowlist.
type LuaSandboxLibsMeta struct {
	Base   bool `json:"base,omitempty"`
	Table  bool `json:"table,omitempty"`
	String bool `json:"string,omitempty"`
	Math   bool `json:"math,omitempty"`
}

// LuaSandboxMeta bounds case body evaluation.
type LuaSandboxMeta struct {
	TimeoutMs           int                `json:"timeoutMs,omitempty"`
	InstructionLimit    int                `json:"instructionLimit,omitempty"`
	MemoryLimitBytes    int                `json:"memoryLimitBytes,omitempty"`
	Libs                LuaSandboxLibsMeta `json:"libs,omitempty"`
	DeterministicRandom bool               `json:"deterministicRandom,omitempty"`
}

// Meta holds optional metadata with deterministic JSON field order.
type Meta struct {
	ContractVersion string          `json:"contractVersion,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	ConfigPath      string          `json:"configPath,omitempty"`
	Config          *ConfigMeta     `json:"config,omitempty"`
	Discovery       *DiscoveryMeta  `json:"discovery,omitempty"`
	Resolution      *ResolutionMeta `json:"resolution,omitempty"`
	Errors          *ErrorsMeta     `json:"errors,omitempty"`
	Limits          *LimitsMeta     `json:"limits,omitempty"`
	LuaSandbox      *LuaSandboxMeta `json:"luaSandbox,omitempty"`
	Output          *OutputMeta     `json:"output,omitempty"`
	Workers         int             `json:"workers,omitempty"`
}

// Envelope is the JSON-serializable contract between stages.
// Field order is stable to keep JSON deterministic in tests.
type Envelope struct {
	Records []Record `json:"records"`
	Meta    *Meta    `json:"meta,omitempty"`
	Errors  []Error  `json:"errors,omitempty"`
}
