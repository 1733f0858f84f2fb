package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nconklindev/tableview/internal/loader"
	"github.com/nconklindev/tableview/internal/render"
	"github.com/nconklindev/tableview/internal/types"
	"github.com/nconklindev/tableview/internal/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRenderCmd(app *App, opts *globalOptions) *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render <input>",
		Short: "Render a table file to index.html",
		Example: `  tableview render products.csv -o out
  tableview render photos.xlsx --store-image base64 --resize 256
  tableview render events.jsonl --query 'select(.level == "error")' --max-rows 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := flags.renderConfig(cmd.Flags(), opts.cfg, args[0])
			if err != nil {
				return err
			}

			result, err := renderInput(cmd.Context(), args[0], flags.loadOptions(), trimAll(flags.columns), rc, opts.logger)
			if err != nil {
				return err
			}
			printRenderResult(app, result)
			return nil
		},
	}
	addRenderFlags(cmd.Flags(), flags)
	return cmd
}

// renderInput loads input, keeps the requested columns and saves index.html.
func renderInput(ctx context.Context, input string, lo loader.Options, columns []string, rc types.RenderConfig, logger *slog.Logger) (*types.RenderResult, error) {
	logger.Debug("Loading table", "input", input)
	table, err := loader.Load(ctx, input, lo)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", input, err)
	}

	if len(columns) > 0 {
		if table, err = table.Select(columns); err != nil {
			return nil, err
		}
	}

	r, err := render.New(rc, logger)
	if err != nil {
		return nil, err
	}
	r.SetData(table)
	return r.Save()
}

func printRenderResult(app *App, result *types.RenderResult) {
	fmt.Fprintln(app.Stdout, ui.Success("HTML file saved to %s (%s)", result.OutputFile, humanize.Bytes(uint64(result.BytesWritten))))
	if result.RowsRendered < result.RowsTotal {
		fmt.Fprintln(app.Stdout, ui.InfoStyle.Render(fmt.Sprintf("Rendered %d of %d rows", result.RowsRendered, result.RowsTotal)))
	}
}
