package migrations

import "embed"

// FS holds the case archive schema migrations.
//
//go:embed *.sql
var FS embed.FS
