package types

import (
	"errors"
	"fmt"
	"html/template"
	"image"
	"iter"
	"strings"
)

var (
	ErrUnknownColumn    = errors.New("unknown column")
	ErrInvalidStoreMode = errors.New("invalid store mode")
)

// StoreMode controls how image cells end up in the rendered page.
type StoreMode string

const (
	StoreLocal  StoreMode = "local"
	StoreBase64 StoreMode = "base64"
	StoreNone   StoreMode = "none"
)

// ParseStoreMode maps a flag or config value to a StoreMode. Empty means local.
func ParseStoreMode(s string) (StoreMode, error) {
	switch StoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", StoreLocal:
		return StoreLocal, nil
	case StoreBase64:
		return StoreBase64, nil
	case StoreNone:
		return StoreNone, nil
	}
	return "", fmt.Errorf("%w: %q (want local, base64 or none)", ErrInvalidStoreMode, s)
}

type CellKind string

const (
	KindImage  CellKind = "image"
	KindNumber CellKind = "number"
	KindString CellKind = "string"
	// KindText marks a placeholder that stands in for an omitted image.
	KindText CellKind = "str"
)

type Row struct {
	Index int
	Cells map[string]any
}

// Table is an ordered list of rows sharing one ordered column list.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// All yields the rows in order, keyed by their index label.
func (t *Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for _, row := range t.Rows {
			if !yield(row.Index, row) {
				return
			}
		}
	}
}

// Select returns a table restricted to the given columns, in the given order.
// Rows share cell values with the receiver.
func (t *Table) Select(columns []string) (*Table, error) {
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}
	for _, c := range columns {
		if !known[c] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}

	out := &Table{Columns: append([]string(nil), columns...)}
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make(map[string]any, len(columns))
		for _, c := range columns {
			if v, ok := row.Cells[c]; ok {
				cells[c] = v
			}
		}
		out.Rows = append(out.Rows, Row{Index: row.Index, Cells: cells})
	}
	return out, nil
}

// Head returns the first n rows. n <= 0 returns the table unchanged.
func (t *Table) Head(n int) *Table {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

type RenderConfig struct {
	SaveDir      string
	StoreImage   StoreMode
	ResizeImage  int
	MaxRows      int
	DisplayIndex bool
	Title        string
}

type RenderedCell struct {
	Value string
	Kind  CellKind
	Src   template.URL
}

type RenderedRow struct {
	Index int
	Cells []RenderedCell
}

type RenderResult struct {
	OutputFile    string
	RowsRendered  int
	RowsTotal     int
	ImagesWritten int
	BytesWritten  int64
}

type ColumnSummary struct {
	Name string
	Kind CellKind
}

type Preview struct {
	InputFile string
	Columns   []ColumnSummary
	Rows      int
}

// FileData is the raw string grid read from a delimited or spreadsheet file,
// before values are typed.
type FileData struct {
	Headers   []string
	Rows      [][]string
	HeaderRow int
}

// KindOf classifies a cell value the way the page template displays it.
func KindOf(v any) CellKind {
	switch v.(type) {
	case image.Image:
		return KindImage
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	}
	return KindString
}
