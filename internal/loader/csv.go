package loader

import (
	"encoding/csv"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/nconklindev/tableview/internal/imaging"
	"github.com/nconklindev/tableview/internal/types"
)

func readCSVData(filePath string, tabs bool) (*types.FileData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if tabs {
		reader.Comma = '\t'
		reader.LazyQuotes = true
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty file: %w", ErrNoRows)
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	return &types.FileData{
		Headers: headers,
		Rows:    records[1:],
	}, nil
}

func loadImageRef(val, baseDir string) (image.Image, error) {
	val = strings.TrimSpace(val)
	if imaging.IsDataURI(val) {
		return imaging.DecodeDataURI(val)
	}

	data, err := os.ReadFile(imagePath(val, baseDir))
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", val, err)
	}
	return img, nil
}
