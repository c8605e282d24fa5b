package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const parseDefinitionsStage = "parse-definitions"
const defaultMaxYAMLBytes = 1048576

// determineRoot returns the discovery root, defaulting to ".".
func determineRoot(in Envelope) string {
	root := "."
	if in.Meta != nil && in.Meta.Discovery != nil && in.Meta.Discovery.Root != "" {
		root = in.Meta.Discovery.Root
	}
	return root
}

func maxYAMLBytes(meta *Meta) int {
	if meta != nil && meta.Limits != nil && meta.Limits.MaxYAMLBytes > 0 {
		return meta.Limits.MaxYAMLBytes
	}
	return defaultMaxYAMLBytes
}

// processDefinitionRecord reads, parses, and validates a single switch
// definition file, returning the parsed record on success, or an env
// error (keep-going) or fatal error.
func processDefinitionRecord(rec Record, root string, mode string, embed bool, maxBytes int) (Record, *Error, error) {
	locator := rec.Locator

	fail := func(msg string) (Record, *Error, error) {
		msg = sanitizeErrorMessage(msg)
		if mode == "keep-going" {
			out := Record{Locator: locator}
			if embed {
				out.Error = &RecError{Stage: parseDefinitionsStage, Message: msg}
			} else {
				out.Error = &RecError{Stage: parseDefinitionsStage, Message: "failed"}
			}
			return out, &Error{Stage: parseDefinitionsStage, Locator: locator, Message: msg}, nil
		}
		return Record{}, nil, fmt.Errorf("%s: %s: %s", parseDefinitionsStage, locator, msg)
	}

	p := filepath.Join(root, filepath.FromSlash(locator))
	info, err := os.Stat(p)
	if err != nil {
		return fail(fmt.Sprintf("read error: %v", err))
	}
	if info.Size() > int64(maxBytes) {
		return fail(fmt.Sprintf("file exceeds maxYAMLBytes limit: %d", maxBytes))
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return fail(fmt.Sprintf("read error: %v", err))
	}
	def, msg := parseDefinition(b)
	if msg != "" {
		return fail(msg)
	}
	return Record{Locator: locator, Definition: def}, nil, nil
}

// parseDefinition parses and validates a definition document, returning
// a message describing the first violation when the document is invalid.
func parseDefinition(b []byte) (*Definition, string) {
	var y any
	if err := yaml.Unmarshal(b, &y); err != nil {
		return nil, fmt.Sprintf("invalid YAML: %v", err)
	}
	ym, ok := y.(map[string]any)
	if !ok {
		return nil, "top-level must be mapping"
	}
	for k := range ym {
		switch k {
		case "subject", "scope", "strict", "cases":
		default:
			return nil, fmt.Sprintf("unknown top-level field: %s", k)
		}
	}
	def := &Definition{}
	subject, ok := ym["subject"]
	if !ok {
		return nil, "missing required field: subject"
	}
	def.Subject = normalizeScalar(subject)

	if sv, ok := ym["scope"]; ok {
		sm, ok := sv.(map[string]any)
		if !ok {
			return nil, "invalid type for field: scope"
		}
		def.Scope = sm
	}
	if sv, ok := ym["strict"]; ok {
		sb, ok := sv.(bool)
		if !ok {
			return nil, "invalid type for field: strict"
		}
		def.Strict = &sb
	}

	cv, ok := ym["cases"]
	if !ok {
		return nil, "missing required field: cases"
	}
	cl, ok := cv.([]any)
	if !ok {
		return nil, "invalid type for field: cases"
	}
	for i, cvAny := range cl {
		cd, msg := parseCaseDef(cvAny)
		if msg != "" {
			return nil, fmt.Sprintf("cases[%d]: %s", i, msg)
		}
		def.Cases = append(def.Cases, cd)
	}
	return def, ""
}

func parseCaseDef(v any) (CaseDef, string) {
	cm, ok := v.(map[string]any)
	if !ok {
		return CaseDef{}, "case must be mapping"
	}
	for k := range cm {
		switch k {
		case "keys", "default", "body":
		default:
			return CaseDef{}, fmt.Sprintf("unknown field: %s", k)
		}
	}
	var cd CaseDef
	if dv, ok := cm["default"]; ok {
		db, ok := dv.(bool)
		if !ok {
			return CaseDef{}, "invalid type for field: default"
		}
		cd.Default = db
	}
	if kv, ok := cm["keys"]; ok {
		kl, ok := kv.([]any)
		if !ok {
			return CaseDef{}, "invalid type for field: keys"
		}
		for _, k := range kl {
			nk, ok := normalizeKey(k)
			if !ok {
				return CaseDef{}, fmt.Sprintf("case key must be a scalar: %v", k)
			}
			cd.Keys = append(cd.Keys, nk)
		}
	}
	if len(cd.Keys) == 0 && !cd.Default {
		return CaseDef{}, "case requires keys or default: true"
	}
	if bv, ok := cm["body"]; ok {
		body, msg := normalizeBody(bv)
		if msg != "" {
			return CaseDef{}, msg
		}
		cd.Body = body
	}
	return cd, ""
}

// normalizeBody accepts a single expression string or a list of them.
func normalizeBody(v any) ([]string, string) {
	switch x := v.(type) {
	case string:
		return []string{x}, ""
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, "body entries must be strings"
			}
			out = append(out, s)
		}
		return out, ""
	default:
		return nil, "invalid type for field: body"
	}
}

// normalizeScalar canonicalizes YAML numeric types so that equality
// between subjects and keys is well defined across documents.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint64:
		if x <= 1<<63-1 {
			return int64(x)
		}
		return x
	default:
		return v
	}
}

// normalizeKey normalizes a case key and reports whether it is an
// acceptable scalar.
func normalizeKey(v any) (any, bool) {
	switch normalizeScalar(v).(type) {
	case nil, bool, string, int64, uint64, float64:
		return normalizeScalar(v), true
	default:
		return nil, false
	}
}
