// Package migrations embeds the PostgreSQL schema for the checkpoint catalog.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
