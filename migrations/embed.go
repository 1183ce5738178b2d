// Package migrations embeds the PostgreSQL schema migrations of the back office.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file of this directory.
//
//go:embed *.sql
var FS embed.FS
