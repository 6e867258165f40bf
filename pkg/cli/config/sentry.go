package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Sentry holds CLI flags for error reporting
type Sentry struct {
	DSN string `masq:"secret"`
}

// Flags returns CLI flags for Sentry configuration
func (s *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN. Error reporting is disabled when empty",
			Category:    "Sentry",
			Sources:     cli.EnvVars("RISKMATRIX_SENTRY_DSN"),
			Destination: &s.DSN,
		},
	}
}

// LogValue implements slog.LogValuer without exposing the DSN
func (s Sentry) LogValue() slog.Value {
	return slog.GroupValue(slog.Bool("enabled", s.DSN != ""))
}

// Configure initializes the Sentry client. The returned function flushes pending events.
func (s *Sentry) Configure(env types.Environment, release string) (func(), error) {
	if s.DSN == "" {
		logging.Default().Debug("Sentry is not configured")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         s.DSN,
		Environment: env.String(),
		Release:     release,
	}); err != nil {
		return func() {}, goerr.Wrap(err, "failed to initialize sentry")
	}

	logging.Default().Info("Sentry enabled", "environment", env)
	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
