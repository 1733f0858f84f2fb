package loader

import (
	"fmt"
	"strings"

	"github.com/nconklindev/tableview/internal/imaging"
	"github.com/nconklindev/tableview/internal/types"

	"github.com/xuri/excelize/v2"
)

func readXLSXTable(filePath, sheet string) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx == -1 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	data, err := readXLSXData(f, sheetName)
	if err != nil {
		return nil, err
	}

	table := typedTable(data)
	if err := attachPictures(f, sheetName, data.HeaderRow, table); err != nil {
		return nil, err
	}
	return table, nil
}

func readXLSXData(f *excelize.File, sheetName string) (*types.FileData, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file: %w", ErrNoRows)
	}

	// Find the header row (first row with multiple non-empty cells)
	headerRowIdx := findHeaderRow(rows)
	if headerRowIdx == -1 {
		headerRowIdx = 0
	}

	return &types.FileData{
		Headers:   rows[headerRowIdx],
		Rows:      rows[headerRowIdx+1:],
		HeaderRow: headerRowIdx,
	}, nil
}

// attachPictures replaces the value of every data cell that anchors a picture
// with the decoded image. Pictures outside the header's columns are ignored.
func attachPictures(f *excelize.File, sheetName string, headerRowIdx int, table *types.Table) error {
	cells, err := f.GetPictureCells(sheetName)
	if err != nil {
		return err
	}

	for _, cell := range cells {
		col, row, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			return err
		}
		dataIdx := row - 1 - (headerRowIdx + 1)
		if dataIdx < 0 || col-1 >= len(table.Columns) {
			continue
		}

		pics, err := f.GetPictures(sheetName, cell)
		if err != nil {
			return fmt.Errorf("picture at %s: %w", cell, err)
		}
		if len(pics) == 0 {
			continue
		}
		img, err := imaging.Decode(pics[0].File)
		if err != nil {
			return fmt.Errorf("picture at %s: %w", cell, err)
		}

		for len(table.Rows) <= dataIdx {
			table.Rows = append(table.Rows, types.Row{Index: len(table.Rows), Cells: map[string]any{}})
		}
		table.Rows[dataIdx].Cells[table.Columns[col-1]] = img
	}
	return nil
}

// findHeaderRow locates the first row that appears to be a header
// by finding the row with the most non-empty text cells
func findHeaderRow(rows [][]string) int {
	maxNonEmpty := 0
	headerIdx := -1

	// Look at first 20 rows max
	searchLimit := len(rows)
	if searchLimit > RowDetectionLimit*2 {
		searchLimit = RowDetectionLimit * 2
	}

	for i := 0; i < searchLimit; i++ {
		nonEmptyCount := 0
		hasText := false

		for _, cell := range rows[i] {
			trimmed := strings.TrimSpace(cell)
			if trimmed != "" {
				nonEmptyCount++
				if containsLetters(trimmed) {
					hasText = true
				}
			}
		}

		// A single-column sheet still has a header
		if nonEmptyCount >= 1 && hasText && nonEmptyCount > maxNonEmpty {
			maxNonEmpty = nonEmptyCount
			headerIdx = i
		}
	}

	return headerIdx
}

// containsLetters checks if a string contains any alphabetic characters
func containsLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
