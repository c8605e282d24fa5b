package cli

import "strings"

// Version and Date should be set at build time using ldflags, e.g.:
//
//	-ldflags "-X 'github.com/flarebyte/maat-arbiter/cli.Version=1.2.3' -X 'github.com/flarebyte/maat-arbiter/cli.Date=2026-08-23'"
var (
	Version string
	Date    string
)

// niceDate replaces dashes with spaces for nicer display.
var niceDate = strings.ReplaceAll(Date, "-", " ")
