package cmd

import (
	"path/filepath"

	"github.com/nconklindev/tableview/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App, opts *globalOptions) *cobra.Command {
	flags := &renderFlags{}
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve <input>",
		Short: "Render a table file and serve it over HTTP",
		Long: `Render the input like "render" does, then serve the output directory
until interrupted with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := flags.renderConfig(cmd.Flags(), opts.cfg, args[0])
			if err != nil {
				return err
			}

			srvOpts := server.Options{Host: opts.cfg.Host, Port: opts.cfg.Port}
			if cmd.Flags().Changed("host") {
				srvOpts.Host = host
			}
			if cmd.Flags().Changed("port") {
				srvOpts.Port = port
			}

			result, err := renderInput(cmd.Context(), args[0], flags.loadOptions(), trimAll(flags.columns), rc, opts.logger)
			if err != nil {
				return err
			}
			printRenderResult(app, result)

			srvOpts.Dir = filepath.Dir(result.OutputFile)
			return server.Run(cmd.Context(), srvOpts, opts.logger, app.Stdout)
		},
	}
	addRenderFlags(cmd.Flags(), flags)
	cmd.Flags().StringVar(&host, "host", "", "Address to bind (default 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default 8000)")
	return cmd
}
