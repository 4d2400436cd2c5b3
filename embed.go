package imgembed

import "embed"

// EmbeddedAssets holds the files served under /static:
// gallery.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
