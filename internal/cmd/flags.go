package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nconklindev/tableview/internal/config"
	"github.com/nconklindev/tableview/internal/loader"
	"github.com/nconklindev/tableview/internal/types"

	"github.com/spf13/pflag"
)

// renderFlags are shared by render and serve.
type renderFlags struct {
	out          string
	storeImage   string
	resize       int
	maxRows      int
	index        bool
	columns      []string
	imageColumns []string
	sheet        string
	query        string
	table        string
	title        string
}

func addRenderFlags(fs *pflag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.out, "out", "o", "", "Output directory (default ./tableview_<timestamp>)")
	fs.StringVar(&f.storeImage, "store-image", "", "Image storage: local, base64 or none (default local)")
	fs.IntVar(&f.resize, "resize", 0, "Shrink images so the longest edge fits this many pixels (0 keeps size)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "Render at most this many rows (0 renders all)")
	fs.BoolVar(&f.index, "index", false, "Prepend a # column with the row index")
	fs.StringSliceVar(&f.columns, "columns", nil, "Columns to render, in order (default all)")
	fs.StringSliceVar(&f.imageColumns, "image-columns", nil, "Columns holding image paths or data URIs, on top of detected ones")
	fs.StringVar(&f.sheet, "sheet", "", "XLSX worksheet (default first)")
	fs.StringVar(&f.query, "query", "", "jq filter for JSON inputs, SQL query for SQLite inputs")
	fs.StringVar(&f.table, "table", "", "SQLite table to read (default first table)")
	fs.StringVar(&f.title, "title", "", "Page title (default input file name)")
}

// renderConfig overlays the flags the user actually set on the config file
// values.
func (f *renderFlags) renderConfig(fs *pflag.FlagSet, cfg *config.Config, input string) (types.RenderConfig, error) {
	rc, err := cfg.RenderConfig()
	if err != nil {
		return rc, err
	}

	if fs.Changed("out") {
		rc.SaveDir = f.out
	}
	if fs.Changed("store-image") {
		mode, err := types.ParseStoreMode(f.storeImage)
		if err != nil {
			return rc, err
		}
		rc.StoreImage = mode
	}
	if fs.Changed("resize") {
		rc.ResizeImage = f.resize
	}
	if fs.Changed("max-rows") {
		rc.MaxRows = f.maxRows
	}
	if fs.Changed("index") {
		rc.DisplayIndex = f.index
	}

	rc.Title = f.title
	if rc.Title == "" {
		rc.Title = filepath.Base(input)
	}
	if rc.ResizeImage < 0 {
		return rc, fmt.Errorf("--resize must not be negative, got %d", rc.ResizeImage)
	}
	if rc.MaxRows < 0 {
		return rc, fmt.Errorf("--max-rows must not be negative, got %d", rc.MaxRows)
	}
	return rc, nil
}

func (f *renderFlags) loadOptions() loader.Options {
	return loader.Options{
		Sheet:        f.sheet,
		Query:        f.query,
		SQLTable:     f.table,
		ImageColumns: trimAll(f.imageColumns),
	}
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
