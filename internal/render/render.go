// Package render turns a table into a static HTML page.
//
// Cells are classified by their Go type: images are written as JPEG files,
// embedded as base64 data URIs or replaced with a placeholder; integers are
// printed as decimals, reals with three decimals and everything else in its
// string form.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"image"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/tableview/internal/imaging"
	"github.com/nconklindev/tableview/internal/types"

	"github.com/natefinch/atomic"
)

const (
	IndexFile    = "index.html"
	ImagesDir    = "images"
	IndexColumn  = "#"
	ImageText    = "[Image]"
	DefaultTitle = "tableview"
)

var ErrNoData = errors.New("no table to render")

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title        string
	Columns      []string
	Rows         []types.RenderedRow
	DisplayIndex bool
	RowsShown    int
	RowsTotal    int
}

// Renderer renders one table with a fixed configuration. It is not safe for
// concurrent use.
type Renderer struct {
	config   types.RenderConfig
	data     *types.Table
	logger   *slog.Logger
	progress chan<- float64
	images   int
}

// DefaultSaveDir names an output directory after the current minute.
func DefaultSaveDir(now time.Time) string {
	return "./" + now.Format("tableview_200601021504")
}

// New validates cfg and creates the output directory, plus its images
// subdirectory when images are stored as files.
func New(cfg types.RenderConfig, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mode, err := types.ParseStoreMode(string(cfg.StoreImage))
	if err != nil {
		return nil, err
	}
	cfg.StoreImage = mode

	if cfg.ResizeImage < 0 {
		return nil, fmt.Errorf("resize must not be negative, got %d", cfg.ResizeImage)
	}
	if cfg.MaxRows < 0 {
		return nil, fmt.Errorf("max rows must not be negative, got %d", cfg.MaxRows)
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = DefaultSaveDir(time.Now())
	}

	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if cfg.StoreImage == types.StoreLocal {
		if err := os.MkdirAll(filepath.Join(cfg.SaveDir, ImagesDir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create images directory: %w", err)
		}
	}

	return &Renderer{config: cfg, logger: logger}, nil
}

func (r *Renderer) Config() types.RenderConfig {
	return r.config
}

func (r *Renderer) SetData(data *types.Table) {
	r.data = data
}

// SetProgress registers a channel that receives the fraction of rows done.
// Sends never block; updates are dropped when the channel is full.
func (r *Renderer) SetProgress(ch chan<- float64) {
	r.progress = ch
}

// HTML renders the current table as an HTML document.
func (r *Renderer) HTML() (string, error) {
	if r.data == nil {
		return "", ErrNoData
	}
	r.images = 0

	data := r.data.Head(r.config.MaxRows)
	limit := data.Len()

	rows := make([]types.RenderedRow, 0, limit)
	for idx, row := range data.All() {
		cells := make([]types.RenderedCell, 0, len(data.Columns))
		for _, col := range data.Columns {
			cell, err := r.formatCell(idx, col, row.Cells[col])
			if err != nil {
				return "", fmt.Errorf("row %d column %q: %w", idx, col, err)
			}
			cells = append(cells, cell)
		}
		rows = append(rows, types.RenderedRow{Index: idx, Cells: cells})
		r.reportProgress(float64(len(rows)) / float64(limit))
	}

	columns := data.Columns
	if r.config.DisplayIndex {
		columns = append([]string{IndexColumn}, columns...)
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:        r.config.Title,
		Columns:      columns,
		Rows:         rows,
		DisplayIndex: r.config.DisplayIndex,
		RowsShown:    len(rows),
		RowsTotal:    r.data.Len(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// Save renders the table and writes it to index.html in the output directory.
func (r *Renderer) Save() (*types.RenderResult, error) {
	html, err := r.HTML()
	if err != nil {
		return nil, err
	}

	outputFile := filepath.Join(r.config.SaveDir, IndexFile)
	if err := atomic.WriteFile(outputFile, strings.NewReader(html)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	shown := r.data.Head(r.config.MaxRows).Len()
	r.logger.Info("HTML file saved", "path", outputFile, "rows", shown, "images", r.images)

	return &types.RenderResult{
		OutputFile:    outputFile,
		RowsRendered:  shown,
		RowsTotal:     r.data.Len(),
		ImagesWritten: r.images,
		BytesWritten:  int64(len(html)),
	}, nil
}

func (r *Renderer) reportProgress(p float64) {
	if r.progress == nil {
		return
	}
	select {
	case r.progress <- p:
	default:
	}
}

func (r *Renderer) formatCell(rowIdx int, col string, v any) (types.RenderedCell, error) {
	switch x := v.(type) {
	case image.Image:
		return r.formatImage(rowIdx, col, x)
	case []byte:
		if img, err := imaging.Decode(x); err == nil {
			return r.formatImage(rowIdx, col, img)
		}
		return stringCell(string(x)), nil
	case nil:
		return stringCell(""), nil
	case string:
		return stringCell(x), nil
	case bool:
		if x {
			return numberCell("True"), nil
		}
		return numberCell("False"), nil
	case int:
		return numberCell(strconv.FormatInt(int64(x), 10)), nil
	case int8:
		return numberCell(strconv.FormatInt(int64(x), 10)), nil
	case int16:
		return numberCell(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return numberCell(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return numberCell(strconv.FormatInt(x, 10)), nil
	case uint:
		return numberCell(strconv.FormatUint(uint64(x), 10)), nil
	case uint8:
		return numberCell(strconv.FormatUint(uint64(x), 10)), nil
	case uint16:
		return numberCell(strconv.FormatUint(uint64(x), 10)), nil
	case uint32:
		return numberCell(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return numberCell(strconv.FormatUint(x, 10)), nil
	case float32:
		return numberCell(FormatReal(float64(x))), nil
	case float64:
		return numberCell(FormatReal(x)), nil
	case fmt.Stringer:
		return stringCell(x.String()), nil
	}
	return stringCell(fmt.Sprint(v)), nil
}

// FormatReal prints f with three decimals. NaN and infinities are spelled
// nan, inf and -inf.
func FormatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func numberCell(s string) types.RenderedCell {
	return types.RenderedCell{Value: s, Kind: types.KindNumber}
}

func stringCell(s string) types.RenderedCell {
	return types.RenderedCell{Value: s, Kind: types.KindString}
}

func (r *Renderer) formatImage(rowIdx int, col string, img image.Image) (types.RenderedCell, error) {
	switch r.config.StoreImage {
	case types.StoreLocal:
		img = imaging.ResizeLongestEdge(img, r.config.ResizeImage)

		var buf bytes.Buffer
		if err := imaging.EncodeJPEG(&buf, img); err != nil {
			return types.RenderedCell{}, fmt.Errorf("failed to encode image: %w", err)
		}

		name := ImageFileName(rowIdx, col)
		dest := filepath.Join(r.config.SaveDir, ImagesDir, name)
		if err := atomic.WriteFile(dest, &buf); err != nil {
			return types.RenderedCell{}, fmt.Errorf("failed to write image: %w", err)
		}
		r.images++
		r.logger.Debug("Image saved", "path", dest)

		rel := path.Join(ImagesDir, name)
		return types.RenderedCell{Value: rel, Kind: types.KindImage, Src: template.URL(rel)}, nil

	case types.StoreBase64:
		encoded, err := imaging.EncodeBase64JPEG(img)
		if err != nil {
			return types.RenderedCell{}, fmt.Errorf("failed to encode image: %w", err)
		}
		uri := "data:image/jpeg;base64," + encoded
		return types.RenderedCell{Value: uri, Kind: types.KindImage, Src: template.URL(uri)}, nil
	}

	return types.RenderedCell{Value: ImageText, Kind: types.KindText}, nil
}

// ImageFileName is the file an image cell is stored under. Characters outside
// [A-Za-z0-9._-] in the column name become underscores.
func ImageFileName(rowIdx int, col string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, col)
	return fmt.Sprintf("image_%d_%s.jpg", rowIdx, safe)
}
