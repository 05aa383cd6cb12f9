// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// Files holds every migration, applied in filename order.
//
//go:embed *.sql
var Files embed.FS
