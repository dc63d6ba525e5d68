// Package migrations embeds the SQL migration files for the identity service.
package migrations

import "embed"

// FS contains all .up.sql migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
