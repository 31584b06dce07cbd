// Package migrations holds the numbered schema files for drive.db.
// Each NNN_name.up.sql is applied once, in order, and recorded in
// schema_migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
