// Package migrations embeds the worker schema.
package migrations

import "embed"

// FS holds the worker migration files.
//
//go:embed *.sql
var FS embed.FS
