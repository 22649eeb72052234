// Package migrations embeds the goose SQL files for the florex schema so the
// binary can migrate a database without shipping the sql directory.
package migrations

import "embed"

// FS holds one directory of migrations per dialect: sql/postgres,
// sql/mysql and sql/sqlite.
//
//go:embed sql/postgres/*.sql sql/mysql/*.sql sql/sqlite/*.sql
var FS embed.FS
