// Package migrations embeds the planner schema.
package migrations

import "embed"

// FS holds the planner SQL migrations.
//
//go:embed *.sql
var FS embed.FS
