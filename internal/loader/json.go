package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"

	"github.com/nconklindev/tableview/internal/types"

	"github.com/itchyny/gojq"
)

// readJSONTable reads an array of objects (or one object per line when lines
// is set). A non-empty query is run with gojq over the whole document, the
// way jq --slurp sees a JSON Lines file.
func readJSONTable(ctx context.Context, filePath string, lines bool, query string) (*types.Table, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	values, err := decodeJSONValues(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var doc any
	switch {
	case lines:
		doc = values
	case len(values) == 1:
		doc = values[0]
	default:
		return nil, fmt.Errorf("invalid JSON: expected a single document, got %d", len(values))
	}

	if query != "" {
		doc, err = runQuery(ctx, query, doc)
		if err != nil {
			return nil, err
		}
	}

	objects, err := collectObjects(doc)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, ErrNoRows
	}
	return objectTable(objects), nil
}

func decodeJSONValues(raw []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values []any
	for {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		values = append(values, normalizeJSON(v))
	}
	return values, nil
}

// normalizeJSON turns json.Number into int or float64 so gojq accepts the
// value and integers keep rendering without decimals.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil && n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeJSON(e)
		}
		return x
	}
	return v
}

func runQuery(ctx context.Context, query string, doc any) (any, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	var results []any
	iter := code.RunWithContext(ctx, doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				break
			}
			return nil, fmt.Errorf("query error: %w", err)
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func collectObjects(doc any) ([]map[string]any, error) {
	switch x := doc.(type) {
	case map[string]any:
		return []map[string]any{x}, nil
	case []any:
		objects := make([]map[string]any, 0, len(x))
		for i, e := range x {
			obj, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d: expected an object, got %T", i, e)
			}
			objects = append(objects, obj)
		}
		return objects, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("expected an array of objects, got %T", doc)
}

// objectTable orders columns by first appearance, keys of each object sorted.
func objectTable(objects []map[string]any) *types.Table {
	table := &types.Table{Rows: make([]types.Row, 0, len(objects))}
	for i, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !slices.Contains(table.Columns, k) {
				table.Columns = append(table.Columns, k)
			}
		}

		cells := make(map[string]any, len(obj))
		for k, v := range obj {
			cells[k] = flattenJSON(v)
		}
		table.Rows = append(table.Rows, types.Row{Index: i, Cells: cells})
	}
	return table
}

// flattenJSON keeps scalars and re-encodes nested arrays and objects.
func flattenJSON(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return v
}
