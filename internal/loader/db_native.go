//go:build !cgo_sqlite

package loader

import (
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"
