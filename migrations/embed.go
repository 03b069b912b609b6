// Package migrations embeds the console's own Postgres schema: composition
// drafts and the session audit log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
