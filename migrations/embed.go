package migrations

import "embed"

// FS holds the versioned schema migrations, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
