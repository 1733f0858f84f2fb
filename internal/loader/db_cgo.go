//go:build cgo_sqlite

package loader

import (
	_ "github.com/mattn/go-sqlite3"
)

const sqliteDriver = "sqlite3"
