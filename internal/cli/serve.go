package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/observability"
	"github.com/matzehuels/segmenter/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the segmentation HTTP API",
		Long: `Serve the segmentation HTTP API:

  POST /v1/segment   partition a graph definition
  GET  /v1/version   build information
  GET  /healthz      liveness
  GET  /metrics      Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			hooks, err := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			observability.SetAll(hooks)

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			printKeyValue("address", cfg.Server.Addr)
			printKeyValue("cache", cfg.Cache.Backend)
			return server.New(runner, cfg, server.WithLogger(c.Logger)).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultServerAddr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}
