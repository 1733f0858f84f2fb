package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nconklindev/tableview/internal/imaging"
	"github.com/nconklindev/tableview/internal/types"
)

func openSQLite(filePath string) (*sql.DB, error) {
	dsn, err := sqliteURI(filePath)
	if err != nil {
		return nil, err
	}
	return sql.Open(sqliteDriver, dsn)
}

// sqliteURI builds a read-only file: URI. The path is made absolute and
// percent-encoded so '?', '#' and '%' in file names survive.
func sqliteURI(filePath string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}

// readSQLiteTable runs query (or SELECT * FROM table) against a SQLite file.
// With neither set, the first user table by name is read.
func readSQLiteTable(ctx context.Context, filePath, table, query string) (*types.Table, error) {
	db, err := openSQLite(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if query == "" {
		if table == "" {
			if table, err = firstTable(ctx, db); err != nil {
				return nil, err
			}
		}
		query = "SELECT * FROM " + quoteIdent(table)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	columns = uniqueHeaders(columns)

	out := &types.Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		cells := make(map[string]any, len(columns))
		for i, name := range columns {
			cells[name] = sqlValue(values[i])
		}
		out.Rows = append(out.Rows, types.Row{Index: len(out.Rows), Cells: cells})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func firstTable(ctx context.Context, db *sql.DB) (string, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("database has no tables: %w", ErrNoRows)
	}
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	return name, nil
}

// sqlValue keeps numbers and text as they come from the driver; BLOBs become
// images when they decode as one and text otherwise.
func sqlValue(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if img, err := imaging.Decode(b); err == nil {
		return img
	}
	return string(b)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
