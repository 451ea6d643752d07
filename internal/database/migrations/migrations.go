// Package migrations embeds the schema for each supported dialect.
package migrations

import "embed"

// FS holds one directory per driver name (mysql, sqlite).
//
//go:embed mysql/*.sql sqlite/*.sql
var FS embed.FS
