// Package migrations contains embedded SQL migrations for the combat SQLite
// store.
package migrations

import "embed"

//go:embed combat/*.sql
var CombatFS embed.FS
