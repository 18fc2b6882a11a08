package web

import "embed"

// staticFS carries the dashboard assets so the binary serves them from
// any working directory.
//
//go:embed static
var staticFS embed.FS
