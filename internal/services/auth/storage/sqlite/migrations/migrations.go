// Package migrations embeds the auth schema.
package migrations

import "embed"

// FS holds the auth migration files.
//
//go:embed *.sql
var FS embed.FS
