package loader

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nconklindev/tableview/internal/types"

	"github.com/xuri/excelize/v2"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestIsInteger(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Positive", "42", true},
		{"Negative", "-7", true},
		{"Padded", " 3 ", true},
		{"Decimal", "1.5", false},
		{"Empty", "", false},
		{"Text", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInteger(tt.input); got != tt.expected {
				t.Errorf("IsInteger(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsReal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Integer", "1", true},
		{"Decimal", "1.5", true},
		{"Exponent", "2e3", true},
		{"Whitespace", "   ", false},
		{"Mixed", "1.5h", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReal(tt.input); got != tt.expected {
				t.Errorf("IsReal(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTypedTable(t *testing.T) {
	data := &types.FileData{
		Headers: []string{"Name", "Count", "Score", "", "Name"},
		Rows: [][]string{
			{"Alice", "3", "1.5", "x", "a"},
			{"Bob", "", "2", "y"},
		},
	}

	table := typedTable(data)

	wantColumns := []string{"Name", "Count", "Score", "column_4", "Name_2"}
	if !reflect.DeepEqual(table.Columns, wantColumns) {
		t.Fatalf("Columns = %v; want %v", table.Columns, wantColumns)
	}

	tests := []struct {
		row      int
		column   string
		expected any
	}{
		{0, "Name", "Alice"},
		{0, "Count", int64(3)},
		{0, "Score", 1.5},
		{1, "Count", ""},
		{1, "Score", 2.0},
		{1, "Name_2", ""},
	}
	for _, tt := range tests {
		got := table.Rows[tt.row].Cells[tt.column]
		if got != tt.expected {
			t.Errorf("row %d %s = %#v; want %#v", tt.row, tt.column, got, tt.expected)
		}
	}
}

func TestUniqueHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"Distinct", []string{"a", "b"}, []string{"a", "b"}},
		{"Blank", []string{"a", " ", ""}, []string{"a", "column_2", "column_3"}},
		{"Duplicates", []string{"a", "a", "a"}, []string{"a", "a_2", "a_3"}},
		{"Suffix already taken", []string{"a_2", "a", "a"}, []string{"a_2", "a", "a_3"}},
		{"Later header matches suffix", []string{"a", "a", "a_2"}, []string{"a", "a_2", "a_2_2"}},
		{"Blank matches named column", []string{"column_2", ""}, []string{"column_2", "column_2_2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniqueHeaders(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("uniqueHeaders(%q) = %q; want %q", tt.input, got, tt.expected)
			}
			seen := make(map[string]bool, len(got))
			for _, h := range got {
				if seen[h] {
					t.Errorf("duplicate header %q in %q", h, got)
				}
				seen[h] = true
			}
		})
	}
}

func TestLoadCSVWithImages(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "a.png"), pngBytes(t, 4, 2), 0644); err != nil {
		t.Fatal(err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 1, 1))

	inputFile := filepath.Join(tmpDir, "input.csv")
	writeCSV(t, inputFile, [][]string{
		{"Label", "Picture", "Missing"},
		{"one", "a.png", "nope.png"},
		{"two", uri, ""},
	})

	table, err := Load(context.Background(), inputFile, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := table.Rows[0].Cells["Picture"].(image.Image); !ok {
		t.Errorf("file reference not resolved: %T", table.Rows[0].Cells["Picture"])
	}
	if img, ok := table.Rows[1].Cells["Picture"].(image.Image); !ok || img.Bounds().Dx() != 1 {
		t.Errorf("data URI not resolved: %T", table.Rows[1].Cells["Picture"])
	}
	if got := table.Rows[0].Cells["Missing"]; got != "nope.png" {
		t.Errorf("non-existent file should stay a string, got %#v", got)
	}
}

func TestLoadExplicitImageColumnErrors(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	writeCSV(t, inputFile, [][]string{{"Picture"}, {"not-an-image"}})

	_, err := Load(context.Background(), inputFile, Options{ImageColumns: []string{"Picture"}})
	if err == nil {
		t.Fatal("expected error for unreadable image reference")
	}

	_, err = Load(context.Background(), inputFile, Options{ImageColumns: []string{"Nope"}})
	if !errors.Is(err, types.ErrUnknownColumn) {
		t.Errorf("error = %v; want ErrUnknownColumn", err)
	}
}

func TestLoadTSV(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.tsv")
	if err := os.WriteFile(inputFile, []byte("a\tb\n1\thello world\n"), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(context.Background(), inputFile, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Rows[0].Cells["a"] != int64(1) || table.Rows[0].Cells["b"] != "hello world" {
		t.Errorf("unexpected cells: %#v", table.Rows[0].Cells)
	}
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load(context.Background(), "table.parquet", Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v; want ErrUnsupportedFormat", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		content     string
		query       string
		wantColumns []string
		wantRows    int
		wantErr     bool
	}{
		{
			name:        "Array of objects",
			file:        "rows.json",
			content:     `[{"b": 1, "a": "x"}, {"a": "y", "c": 2.5}]`,
			wantColumns: []string{"a", "b", "c"},
			wantRows:    2,
		},
		{
			name:        "JSON lines",
			file:        "rows.jsonl",
			content:     "{\"n\": 1}\n{\"n\": 2}\n{\"n\": 3}\n",
			wantColumns: []string{"n"},
			wantRows:    3,
		},
		{
			name:        "Query selects nested rows",
			file:        "doc.json",
			content:     `{"items": [{"id": 1}, {"id": 2}], "meta": {}}`,
			query:       ".items",
			wantColumns: []string{"id"},
			wantRows:    2,
		},
		{
			name:        "Query over slurped lines",
			file:        "rows.ndjson",
			content:     "{\"n\": 1}\n{\"n\": 2}\n",
			query:       "map(select(.n > 1))",
			wantColumns: []string{"n"},
			wantRows:    1,
		},
		{
			name:    "Scalars are rejected",
			file:    "nums.json",
			content: `[1, 2]`,
			wantErr: true,
		},
		{
			name:    "Invalid query",
			file:    "rows.json",
			content: `[{"a": 1}]`,
			query:   ".[",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			table, err := Load(context.Background(), path, Options{Query: tt.query})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(table.Columns, tt.wantColumns) {
				t.Errorf("Columns = %v; want %v", table.Columns, tt.wantColumns)
			}
			if table.Len() != tt.wantRows {
				t.Errorf("Len() = %d; want %d", table.Len(), tt.wantRows)
			}
		})
	}
}

func TestLoadJSONKeepsIntegers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	if err := os.WriteFile(path, []byte(`[{"i": 7, "f": 7.25, "nested": {"k": [1]}}]`), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	cells := table.Rows[0].Cells
	if cells["i"] != 7 {
		t.Errorf("i = %#v; want int 7", cells["i"])
	}
	if cells["f"] != 7.25 {
		t.Errorf("f = %#v; want 7.25", cells["f"])
	}
	if cells["nested"] != `{"k":[1]}` {
		t.Errorf("nested = %#v", cells["nested"])
	}
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE photos (id INTEGER, ratio REAL, caption TEXT, thumb BLOB)`,
		`CREATE TABLE zeta (x INTEGER)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Exec(`INSERT INTO photos VALUES (?, ?, ?, ?)`, 1, 0.5, "first", pngBytes(t, 2, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO photos VALUES (?, ?, ?, ?)`, 2, 1.25, "second", []byte("raw")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	table, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"id", "ratio", "caption", "thumb"}) {
		t.Fatalf("Columns = %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", table.Len())
	}
	if table.Rows[0].Cells["id"] != int64(1) {
		t.Errorf("id = %#v; want int64(1)", table.Rows[0].Cells["id"])
	}
	if _, ok := table.Rows[0].Cells["thumb"].(image.Image); !ok {
		t.Errorf("image blob not decoded: %T", table.Rows[0].Cells["thumb"])
	}
	if table.Rows[1].Cells["thumb"] != "raw" {
		t.Errorf("non-image blob = %#v; want \"raw\"", table.Rows[1].Cells["thumb"])
	}

	table, err = Load(context.Background(), path, Options{Query: "SELECT caption FROM photos WHERE id = 2"})
	if err != nil {
		t.Fatalf("Load with query failed: %v", err)
	}
	if table.Len() != 1 || table.Rows[0].Cells["caption"] != "second" {
		t.Errorf("unexpected query result: %#v", table.Rows)
	}

	table, err = Load(context.Background(), path, Options{SQLTable: "zeta"})
	if err != nil {
		t.Fatalf("Load with table failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"x"}) || table.Len() != 0 {
		t.Errorf("unexpected zeta table: %v, %d rows", table.Columns, table.Len())
	}
}

func TestSQLiteURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "/data/photos.db", "file:///data/photos.db?mode=ro"},
		{"Question mark", "/data/what?.db", "file:///data/what%3F.db?mode=ro"},
		{"Hash and percent", "/data/#1 100%.db", "file:///data/%231%20100%25.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sqliteURI(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("sqliteURI(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadSQLiteOddFileName(t *testing.T) {
	dir := t.TempDir()
	created := filepath.Join(dir, "plain.db")
	db, err := sql.Open(sqliteDriver, created)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE t (name TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO t VALUES ('kept')`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	path := filepath.Join(dir, "what?#1.db")
	if err := os.Rename(created, path); err != nil {
		t.Fatal(err)
	}

	table, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Len() != 1 || table.Rows[0].Cells["name"] != "kept" {
		t.Errorf("unexpected rows: %#v", table.Rows)
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Report title")
	f.SetCellValue(sheet, "A2", "Name")
	f.SetCellValue(sheet, "B2", "Hours")
	f.SetCellValue(sheet, "C2", "Photo")
	f.SetCellValue(sheet, "A3", "Alice")
	f.SetCellValue(sheet, "B3", 7.5)
	f.SetCellValue(sheet, "A4", "Bob")
	f.SetCellValue(sheet, "B4", 8)
	if err := f.AddPictureFromBytes(sheet, "C3", &excelize.Picture{
		Extension: ".png",
		File:      pngBytes(t, 3, 3),
		Format:    &excelize.GraphicOptions{},
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"Name", "Hours", "Photo"}) {
		t.Fatalf("Columns = %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", table.Len())
	}
	if table.Rows[0].Cells["Hours"] != 7.5 || table.Rows[1].Cells["Hours"] != 8.0 {
		t.Errorf("Hours = %#v, %#v", table.Rows[0].Cells["Hours"], table.Rows[1].Cells["Hours"])
	}
	if _, ok := table.Rows[0].Cells["Photo"].(image.Image); !ok {
		t.Errorf("picture not attached: %T", table.Rows[0].Cells["Photo"])
	}

	if _, err := Load(context.Background(), path, Options{Sheet: "Missing"}); err == nil {
		t.Error("expected error for unknown sheet")
	}
}

func TestFindHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{"First row", [][]string{{"a", "b"}, {"1", "2"}}, 0},
		{"After title", [][]string{{"Title"}, {"Name", "Hours"}, {"x", "1"}}, 1},
		{"Single column", [][]string{{"Name"}, {"Alice"}}, 0},
		{"Numbers only", [][]string{{"1", "2"}}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findHeaderRow(tt.rows); got != tt.expected {
				t.Errorf("findHeaderRow() = %d; want %d", got, tt.expected)
			}
		})
	}
}

func TestReadPreview(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "p.png"), pngBytes(t, 1, 1), 0644); err != nil {
		t.Fatal(err)
	}
	inputFile := filepath.Join(tmpDir, "input.csv")
	writeCSV(t, inputFile, [][]string{
		{"Name", "Score", "Pic"},
		{"a", "", "p.png"},
		{"b", "2.5", "p.png"},
	})

	preview, err := ReadPreview(context.Background(), inputFile, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.ColumnSummary{
		{Name: "Name", Kind: types.KindString},
		{Name: "Score", Kind: types.KindNumber},
		{Name: "Pic", Kind: types.KindImage},
	}
	if !reflect.DeepEqual(preview.Columns, want) {
		t.Errorf("Columns = %v; want %v", preview.Columns, want)
	}
	if preview.Rows != 2 {
		t.Errorf("Rows = %d; want 2", preview.Rows)
	}
}
