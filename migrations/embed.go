// Package migrations embeds the labctl database schema into the binary.
//
// Pass FS to database.DB.Migrate; reservation.Initialize does this for callers.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
