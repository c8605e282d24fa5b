package stage

// errorMode returns the configured error mode, defaulting to fail-fast.
func errorMode(meta *Meta) (mode string, embed bool) {
	mode = "fail-fast"
	if meta != nil && meta.Errors != nil {
		if meta.Errors.Mode != "" {
			mode = meta.Errors.Mode
		}
		embed = meta.Errors.EmbedErrors
	}
	return
}

// strictResolution reports whether unmatched subjects without a default
// case fail. A per-definition strict field overrides the run setting.
func strictResolution(meta *Meta, def *Definition) bool {
	strict := false
	if meta != nil && meta.Resolution != nil {
		strict = meta.Resolution.Strict
	}
	if def != nil && def.Strict != nil {
		strict = *def.Strict
	}
	return strict
}
