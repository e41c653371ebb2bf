package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/metrics"
	"github.com/matzehuels/docwalk/pkg/server"
	"github.com/matzehuels/docwalk/pkg/source"
)

// serveCommand exposes queries over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve document queries over HTTP",
		Long: `Serve document queries over HTTP until interrupted.

Routes include /documents, /documents/{id}/references, /documents/{id}/descriptors,
POST /selection and /documents/{id}/graph.svg. Prometheus metrics are on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config.Serve.Addr
			}
			return c.runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+defaultAddr+")")
	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()
	b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer c.closeBackend(b)

	m := metrics.New(prometheus.NewRegistry())
	m.Install()

	loc := c.sourceLocation()
	srv := server.New(source.Instrument(backendName(loc), b), server.Config{
		Logger:    c.Logger,
		Metrics:   m.Handler(),
		NonNative: c.config.NonNative,
		SVGCache:  c.svgCache(false),
	})

	out := cmd.OutOrStdout()
	printKeyValue(out, "source", loc)
	printKeyValue(out, "listening", addr)
	printKeyValue(out, "metrics", addr+"/metrics")
	return srv.ListenAndServe(ctx, addr)
}
