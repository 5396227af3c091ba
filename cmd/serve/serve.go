package serve

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/image-analyzer/internal/analysis"
	"github.com/tphakala/image-analyzer/internal/api"
	"github.com/tphakala/image-analyzer/internal/buildinfo"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/telemetry"
)

// Command creates the command that runs the HTTP API.
func Command(settings *conf.Settings, build buildinfo.BuildInfo) *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the image analysis HTTP API",
		Long:  "Start the JSON API that classifies images and serves the analysis history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				settings.WebServer.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.WebServer.Port = port
			}
			return run(cmd.Context(), settings, build)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides webserver.host)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides webserver.port)")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, build buildinfo.BuildInfo) error {
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = central.Close() }()
	log := central.Module("main")

	if enabled, err := telemetry.Init(settings, build); err != nil {
		log.Warn("error telemetry disabled", logger.Error(err))
	} else if enabled {
		log.Info("error telemetry enabled")
		defer telemetry.Flush(telemetry.DefaultFlushTimeout)
	}

	rt, err := analysis.NewRuntime(ctx, settings, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("error closing runtime", logger.Error(err))
		}
	}()

	controller := api.NewController(rt.Service, rt.Store.Labels,
		api.WithBuildInfo(build),
		api.WithHealthCheck(rt.Store),
		api.WithMetricsHandler(rt.Metrics.Handler()),
		api.WithControllerLogger(central.Module("api")))

	server, err := api.New(settings,
		api.WithController(controller),
		api.WithMetrics(rt.Metrics.HTTP),
		api.WithLogger(central.Module("http")))
	if err != nil {
		return err
	}

	log.Info("image analyzer starting",
		logger.String("version", build.GetVersion()),
		logger.String("datastore", rt.Store.Type()),
		logger.String("address", server.Config().Address()))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}
	return server.Shutdown(context.WithoutCancel(ctx))
}
