// Package migrations embeds the accounting schema.
package migrations

import "embed"

// FS holds the accounting migration files.
//
//go:embed *.sql
var FS embed.FS
