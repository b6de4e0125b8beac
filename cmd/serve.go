package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/isorender/internal/config"
	"github.com/conneroisu/isorender/internal/demo"
	"github.com/conneroisu/isorender/internal/logging"
	"github.com/conneroisu/isorender/internal/metrics"
	"github.com/conneroisu/isorender/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the SSR server",
		Long: `Start the SSR server with the built-in demo pages.

Examples:
  isorender serve                        # Serve on localhost:8080
  isorender serve -p 3000 --host 0.0.0.0 # Listen on all interfaces
  isorender serve --dev --watch ./views  # Live reload on changes in ./views
  isorender serve --no-cache             # Render every request`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
				v.Set("cache.enabled", false)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, v)
		},
	}

	fs := cmd.Flags()
	fs.IntP("port", "p", 0, "Port to serve on")
	fs.String("host", "", "Host to bind to")
	fs.Bool("dev", false, "Enable development mode with live reload")
	fs.StringSliceP("watch", "w", nil, "Paths to watch in development mode")
	fs.Int64("cache-bytes", 0, "Response cache capacity in bytes")
	fs.Duration("max-age", 0, "Maximum age of a cached response")
	fs.Bool("no-cache", false, "Disable the response cache")
	fs.Int("max-rounds", 0, "Maximum render rounds per page")

	bindFlags(v, fs, map[string]string{
		"port":        "server.port",
		"host":        "server.host",
		"dev":         "development.enabled",
		"watch":       "development.watch_paths",
		"cache-bytes": "cache.capacity_bytes",
		"max-age":     "cache.max_age",
		"max-rounds":  "render.max_rounds",
	})

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger()

	srv, err := server.New(cfg, server.Options{
		Routes:  demo.Routes(demo.DefaultCatalog()),
		Logger:  logger,
		Metrics: metrics.New(metrics.Config{Runtime: true}),
	})
	if err != nil {
		return err
	}

	op := logging.StartOperation(logger, "serve")
	if err := srv.Start(ctx); err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx, "addr", cfg.Server.Addr())
	return nil
}
