package appfs

import "embed"

// FS embeds the SQL migrations so the api and admin binaries stay
// self-contained.
//
//go:embed migrations
var FS embed.FS
