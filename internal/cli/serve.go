package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/observability"
	"github.com/matzehuels/azdiagram/pkg/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		history    bool
		historyDSN string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rendering API over HTTP",
		Long: `Serve exposes rendering over HTTP. Clients post graph JSON produced by
"azdiagram collect" to /v1/diagrams and get the draw.io document back.
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, history, historyDSN, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&history, "history", false, "enable the history endpoints")
	cmd.Flags().StringVar(&historyDSN, "history-dsn", "", "history store: directory, sqlite://path or mongodb://... (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, history bool, historyDSN string, noCache bool) error {
	r, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer r.Close()
	if history {
		if r.History, err = c.openHistory(ctx, historyDSN); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheus(reg)
	observability.SetPipelineHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetBackendHooks(metrics)
	defer observability.Reset()

	srv := server.New(r, server.WithLogger(c.Logger), server.WithGatherer(reg))
	return srv.ListenAndServe(ctx, addr)
}
