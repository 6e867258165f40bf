package cli

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/cli/config"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

// appConfig gathers the configuration shared by the commands that start the application shell
type appConfig struct {
	settings config.Settings
	repo     config.Repository
	matrix   config.AppConfig
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.settings.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.matrix.Flags()...)
	return flags
}

// Configure builds the use cases from flags and the process environment. The application
// shell is returned uninitialized.
func (x *appConfig) Configure(m *metrics.Metrics) (*usecase.UseCases, error) {
	settings, err := x.settings.Configure(config.Environ())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure settings", goerr.T(usecase.ErrTagConfiguration))
	}

	matrix, err := x.matrix.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load matrix configuration", goerr.T(usecase.ErrTagConfiguration))
	}

	stores, err := x.repo.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure repository", goerr.T(usecase.ErrTagConfiguration))
	}

	logging.Default().Info("Settings resolved",
		"environment", settings.Environment,
		"debug", settings.Debug,
		"base_dir", settings.BaseDir,
		"database_path", settings.DatabasePath(),
		"backend", x.repo.Backend(),
	)

	return usecase.New(settings, stores,
		usecase.WithMatrixConfig(matrix),
		usecase.WithMetrics(m),
	), nil
}
