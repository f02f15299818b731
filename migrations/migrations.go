// Package migrations embeds the SQL schema files applied at startup.
package migrations

import "embed"

// Files holds the *.up.sql migrations, applied in ascending filename order.
//
//go:embed *.up.sql
var Files embed.FS
