package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nconklindev/tableview/internal/imaging"
	"github.com/nconklindev/tableview/internal/types"
)

const RowDetectionLimit = 10

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrNoRows            = errors.New("no rows")
)

// Options tune how a source file is turned into a table.
type Options struct {
	// Sheet selects the XLSX worksheet. Defaults to the first one.
	Sheet string
	// Query is a jq expression for JSON inputs and SQL for SQLite inputs.
	Query string
	// SQLTable is read with SELECT * when Query is empty.
	SQLTable string
	// ImageColumns are always resolved as images, on top of detected ones.
	ImageColumns []string
}

// SupportedExtensions lists every input extension Load understands.
var SupportedExtensions = []string{".csv", ".tsv", ".xlsx", ".json", ".jsonl", ".ndjson", ".db", ".sqlite", ".sqlite3"}

// Load reads a table from path, picking the reader by file extension.
func Load(ctx context.Context, path string, opts Options) (*types.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		table *types.Table
		err   error
	)
	switch ext {
	case ".csv", ".tsv":
		var data *types.FileData
		if data, err = readCSVData(path, ext == ".tsv"); err == nil {
			table = typedTable(data)
		}
	case ".xlsx":
		table, err = readXLSXTable(path, opts.Sheet)
	case ".json", ".jsonl", ".ndjson":
		table, err = readJSONTable(ctx, path, ext != ".json", opts.Query)
	case ".db", ".sqlite", ".sqlite3":
		table, err = readSQLiteTable(ctx, path, opts.SQLTable, opts.Query)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if err := resolveImages(table, opts.ImageColumns, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return table, nil
}

// ReadPreview loads path and summarizes its columns.
func ReadPreview(ctx context.Context, path string, opts Options) (*types.Preview, error) {
	table, err := Load(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return Summarize(path, table), nil
}

// Summarize describes each column by the kind of its first non-empty value.
func Summarize(path string, table *types.Table) *types.Preview {
	preview := &types.Preview{InputFile: path, Rows: table.Len()}
	for _, col := range table.Columns {
		kind := types.KindString
		for _, row := range table.Rows {
			v, ok := row.Cells[col]
			if !ok || v == nil || v == "" {
				continue
			}
			kind = types.KindOf(v)
			break
		}
		preview.Columns = append(preview.Columns, types.ColumnSummary{Name: col, Kind: kind})
	}
	return preview
}

// IsInteger checks if a string is a plain base-10 integer
func IsInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// IsReal checks if a string parses as a floating point number
func IsReal(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

type columnKind int

const (
	columnString columnKind = iota
	columnInteger
	columnReal
)

// detectColumnKind looks at every non-empty value of a column: all integers
// make an integer column, all numbers a real column, anything else a string one.
func detectColumnKind(data *types.FileData, col int) columnKind {
	kind := columnInteger
	seen := false
	for _, row := range data.Rows {
		if col >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[col])
		if val == "" {
			continue
		}
		seen = true
		if kind == columnInteger && !IsInteger(val) {
			kind = columnReal
		}
		if kind == columnReal && !IsReal(val) {
			return columnString
		}
	}
	if !seen {
		return columnString
	}
	return kind
}

// typedTable converts a raw string grid into a table, typing numeric columns.
// Empty cells stay empty strings.
func typedTable(data *types.FileData) *types.Table {
	headers := uniqueHeaders(data.Headers)
	kinds := make([]columnKind, len(headers))
	for i := range headers {
		kinds[i] = detectColumnKind(data, i)
	}

	table := &types.Table{Columns: headers, Rows: make([]types.Row, 0, len(data.Rows))}
	for i, record := range data.Rows {
		cells := make(map[string]any, len(headers))
		for colIdx, name := range headers {
			cell := ""
			if colIdx < len(record) {
				cell = record[colIdx]
			}
			cells[name] = typedValue(cell, kinds[colIdx])
		}
		table.Rows = append(table.Rows, types.Row{Index: i, Cells: cells})
	}
	return table
}

func typedValue(cell string, kind columnKind) any {
	val := strings.TrimSpace(cell)
	if val == "" {
		return cell
	}
	switch kind {
	case columnInteger:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	case columnReal:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return cell
}

// uniqueHeaders names blank headers after their position and suffixes
// duplicates so every column can be addressed by name. A suffixed name never
// collides with a header that is already taken.
func uniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	taken := make(map[string]bool, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		candidate := name
		for n := 2; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// isImageRef reports whether a string cell points at an image: either a data
// URI or an existing file with an image extension.
func isImageRef(val, baseDir string) bool {
	val = strings.TrimSpace(val)
	if imaging.IsDataURI(val) {
		return true
	}
	if !imaging.IsImagePath(val) {
		return false
	}
	info, err := os.Stat(imagePath(val, baseDir))
	return err == nil && !info.IsDir()
}

func imagePath(val, baseDir string) string {
	if filepath.IsAbs(val) {
		return val
	}
	return filepath.Join(baseDir, val)
}

// AutoDetectImageColumns identifies columns whose sampled string values all
// reference images
func AutoDetectImageColumns(table *types.Table, baseDir string) []string {
	var detected []string

	for _, col := range table.Columns {
		isImages := true
		checkedRows := 0

		for j := 0; j < len(table.Rows) && checkedRows < RowDetectionLimit; j++ {
			s, ok := table.Rows[j].Cells[col].(string)
			if !ok {
				if table.Rows[j].Cells[col] != nil {
					isImages = false
					break
				}
				continue
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			if !isImageRef(s, baseDir) {
				isImages = false
				break
			}
			checkedRows++
		}

		if isImages && checkedRows > 0 {
			detected = append(detected, col)
		}
	}

	return detected
}

func resolveImages(table *types.Table, explicit []string, baseDir string) error {
	columns := AutoDetectImageColumns(table, baseDir)
	for _, col := range explicit {
		if !slices.Contains(table.Columns, col) {
			return fmt.Errorf("image column: %w: %q", types.ErrUnknownColumn, col)
		}
		if !slices.Contains(columns, col) {
			columns = append(columns, col)
		}
	}

	for _, col := range columns {
		for _, row := range table.Rows {
			s, ok := row.Cells[col].(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			img, err := loadImageRef(s, baseDir)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", row.Index, col, err)
			}
			row.Cells[col] = img
		}
	}
	return nil
}
