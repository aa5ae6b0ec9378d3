package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/formplug/pkg/httpapi"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation and submission API",
		Long: `Starts an HTTP server exposing installed plugins, form definitions,
validation and submission endpoints, and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}

			opts := []httpapi.Option{
				httpapi.WithLogger(a.logger),
				httpapi.WithCatalog(e.catalog),
				httpapi.WithValidationTimeout(a.cfg.Server.ReadTimeout),
				httpapi.WithForms(e.forms...),
			}
			if e.metrics != nil {
				opts = append(opts, httpapi.WithMetrics(e.metrics, e.registry))
			}

			srv := httpapi.New(e.rt, opts...)
			success(cmd.OutOrStdout(), "serving %d plugin(s) and %d form(s) on %s", len(e.rt.AllPlugins()), len(e.forms), a.cfg.Server.Addr)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr, a.cfg.Server.ReadTimeout)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = a.loader.Viper().BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
