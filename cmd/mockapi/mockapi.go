package mockapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	mw "github.com/tphakala/image-analyzer/internal/api/middleware"
	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

const (
	defaultListen   = ":8081"
	shutdownTimeout = 5 * time.Second
)

// Command creates the command that serves the remote mock analysis endpoint.
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve the remote mock analysis endpoint",
		Long:  "Serve POST / with synthetic classifications for testing the mockapi backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := listen
			if !cmd.Flags().Changed("listen") && settings.MockAPI.Listen != "" {
				addr = settings.MockAPI.Listen
			}

			central, err := logger.NewCentralLogger(&settings.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = central.Close() }()
			log := central.Module("mockapi")

			cfg := classifier.DefaultLocalConfig()
			if settings.Local.SuccessRate > 0 {
				cfg.SuccessRate = settings.Local.SuccessRate
			}
			cfg.MinLatency, cfg.MaxLatency = 0, 0

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomw.Recover(), mw.NewTraceID(), mw.NewRequestLogger(log))
			NewHandler(classifier.NewLocalProvider(cfg), log).Register(e)

			return serve(cmd.Context(), e, addr, log)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", defaultListen, "Listen address (overrides mockapi.listen)")
	return cmd
}

func serve(ctx context.Context, e *echo.Echo, addr string, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("mock analysis endpoint listening", logger.String("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
