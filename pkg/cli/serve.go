package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/cli/config"
	httpctrl "github.com/secmon-lab/riskmatrix/pkg/controller/http"
	"github.com/secmon-lab/riskmatrix/pkg/service/worker"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var refreshInterval time.Duration
	var appCfg appConfig
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RISKMATRIX_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "count-refresh-interval",
			Usage:       "Interval of the risk count refresh exported at /metrics",
			Value:       time.Minute,
			Sources:     cli.EnvVars("RISKMATRIX_COUNT_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			m := metrics.New()
			uc, err := appCfg.Configure(m)
			if err != nil {
				return err
			}
			defer uc.App.Close(ctx)

			flush, err := sentryCfg.Configure(uc.App.Settings().Environment, version)
			if err != nil {
				return err
			}
			defer flush()

			// A failed start is already reported; the server keeps running to show the error page
			if err := uc.App.Initialize(ctx); err != nil {
				logging.Default().Warn("Serving in failed state", "state", uc.App.State().String())
			}

			refresher := worker.NewRiskCountRefreshWorker(uc.App, refreshInterval)
			refresher.Start(ctx)
			defer refresher.Stop()

			httpHandler, err := httpctrl.New(uc.App, uc.Risk, httpctrl.WithMetrics(m))
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "state", uc.App.State().String())
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
