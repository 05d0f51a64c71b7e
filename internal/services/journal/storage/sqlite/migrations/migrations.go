// Package migrations embeds the journal schema.
package migrations

import "embed"

// FS holds the journal migration files.
//
//go:embed *.sql
var FS embed.FS
