package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nconklindev/tableview/internal/config"
	"github.com/nconklindev/tableview/internal/loader"
	"github.com/nconklindev/tableview/internal/logging"
	"github.com/nconklindev/tableview/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// globalOptions carries the persistent flags and what PersistentPreRunE
// derives from them.
type globalOptions struct {
	debug      bool
	logFormat  string
	color      string
	configPath string

	cfg    *config.Config
	logger *slog.Logger
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRootCmd(app *App) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "tableview",
		Short: "Render tables with images as a static HTML page",
		Long: `tableview turns CSV, TSV, XLSX, JSON and SQLite tables into a single
index.html, with image cells stored as files, inlined as base64 or omitted.

Run without arguments in a terminal to pick a file interactively.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(app.Stdout) {
				return cmd.Help()
			}
			return runInteractive(cmd, app, opts)
		},
	}
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (default from config, text)")
	pf.StringVar(&opts.color, "color", "", "Color output: auto, always or never (default from config, auto)")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/tableview/config.yaml)")

	rootCmd.AddCommand(newRenderCmd(app, opts))
	rootCmd.AddCommand(newServeCmd(app, opts))
	rootCmd.AddCommand(newInspectCmd(app, opts))
	rootCmd.AddCommand(newConfigCmd(app, opts))
	rootCmd.AddCommand(newVersionCmd(app))

	return rootCmd
}

// setup loads the config file and configures logging and colors. Flags win
// over the file. `config path` and `config init` skip the file so a broken
// config can still be located and replaced.
func (o *globalOptions) setup(cmd *cobra.Command, app *App) error {
	var err error
	switch {
	case skipsConfigFile(cmd):
		o.cfg = config.Default()
	case o.configPath != "":
		o.cfg, err = config.LoadFromPath(o.configPath)
	default:
		o.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-format") {
		o.cfg.LogFormat = o.logFormat
	}
	if cmd.Flags().Changed("color") {
		o.cfg.Color = o.color
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	format, err := logging.ParseFormat(o.cfg.LogFormat)
	if err != nil {
		return err
	}
	o.logger = logging.Setup(o.debug, app.Stderr, format)
	ui.SetColorMode(ui.ColorMode(o.cfg.Color))

	o.logger.Debug("Configuration loaded", "path", o.configFile())
	return nil
}

func skipsConfigFile(cmd *cobra.Command) bool {
	parent := cmd.Parent()
	return parent != nil && parent.Name() == "config" && (cmd.Name() == "path" || cmd.Name() == "init")
}

// configFile is the --config value or the default location.
func (o *globalOptions) configFile() string {
	if o.configPath != "" {
		return o.configPath
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func runInteractive(cmd *cobra.Command, app *App, opts *globalOptions) error {
	renderCfg, err := opts.cfg.RenderConfig()
	if err != nil {
		return err
	}

	// slog output would garble the alternate screen.
	logger := logging.New(opts.debug, io.Discard, logging.FormatText)

	p := tea.NewProgram(
		ui.InitialModel(renderCfg, loader.Options{}, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	final, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(ui.Model); ok && m.Result() != nil {
		res := m.Result()
		fmt.Fprintln(app.Stdout, ui.Success("HTML file saved to %s (%s)", res.OutputFile, humanize.Bytes(uint64(res.BytesWritten))))
	}
	return nil
}
