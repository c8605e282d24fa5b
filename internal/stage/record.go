package stage

// RecError is a per-record error payload.
type RecError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// CaseDef is one declared case of a switch definition: a key set (or
// the default marker) and a body of Lua expressions evaluated in order,
// the last of which produces the case result.
type CaseDef struct {
	Keys    []any    `json:"keys,omitempty"`
	Default bool     `json:"default,omitempty"`
	Body    []string `json:"body"`
}

// Definition is a parsed switch definition document.
type Definition struct {
	Subject any            `json:"subject"`
	Scope   map[string]any `json:"scope,omitempty"`
	Strict  *bool          `json:"strict,omitempty"`
	Cases   []CaseDef      `json:"cases"`
}

// Outcome is the resolved result of one definition. Matched is "case",
// "default" or "none"; Key carries the matched case key when a plain
// case was selected.
type Outcome struct {
	Output  any    `json:"output"`
	Matched string `json:"matched"`
	Key     any    `json:"key,omitempty"`
}

// Record is the standard per-record shape in the envelope, one per
// discovered definition file. Using a struct ensures deterministic
// JSON field ordering.
type Record struct {
	Locator    string      `json:"locator"`
	Definition *Definition `json:"definition,omitempty"`
	Outcome    *Outcome    `json:"outcome,omitempty"`
	Error      *RecError   `json:"error,omitempty"`
}
