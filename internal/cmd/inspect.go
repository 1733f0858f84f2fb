package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/nconklindev/tableview/internal/loader"
	"github.com/nconklindev/tableview/internal/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newInspectCmd(app *App, opts *globalOptions) *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Show the columns and detected kinds of a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			info, err := os.Stat(input)
			if err != nil {
				return err
			}

			preview, err := loader.ReadPreview(cmd.Context(), input, flags.loadOptions())
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", input, err)
			}

			width := 0
			for _, col := range preview.Columns {
				width = max(width, len(col.Name))
			}

			var s strings.Builder
			s.WriteString(ui.HeadingStyle.Render(preview.InputFile))
			s.WriteString("\n")
			fmt.Fprintf(&s, "%s %s\n", ui.LabelStyle.Render("Size:"), humanize.Bytes(uint64(info.Size())))
			fmt.Fprintf(&s, "%s %s\n", ui.LabelStyle.Render("Rows:"), humanize.Comma(int64(preview.Rows)))
			fmt.Fprintf(&s, "%s %d\n\n", ui.LabelStyle.Render("Columns:"), len(preview.Columns))
			for _, col := range preview.Columns {
				fmt.Fprintf(&s, "  %-*s  %s\n", width, col.Name, ui.KindStyle.Render(string(col.Kind)))
			}

			fmt.Fprint(app.Stdout, s.String())
			opts.logger.Debug("Inspected table", "input", input, "columns", len(preview.Columns))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.sheet, "sheet", "", "XLSX worksheet (default first)")
	fs.StringVar(&flags.query, "query", "", "jq filter for JSON inputs, SQL query for SQLite inputs")
	fs.StringVar(&flags.table, "table", "", "SQLite table to read (default first table)")
	fs.StringSliceVar(&flags.imageColumns, "image-columns", nil, "Columns holding image paths or data URIs")
	return cmd
}
