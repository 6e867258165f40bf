package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/cli/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig
	var settingsCfg config.Settings
	var repoCfg config.Repository
	var checkDB bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, settingsCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Also check that every stored risk entry is valid",
		Destination: &checkDB,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the matrix configuration and optionally the stored risk entries",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			// Step 1: Load and validate the matrix configuration
			matrix, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"name", matrix.App.Name,
				"probability_levels", len(matrix.Probability),
				"impact_levels", len(matrix.Impact),
				"severity_bands", len(matrix.Severity),
			)

			if !checkDB {
				return nil
			}

			// Step 2: Check the stored entries against the configuration
			settings, err := settingsCfg.Configure(config.Environ())
			if err != nil {
				return goerr.Wrap(err, "failed to configure settings")
			}
			if settings.IsFirstRun() {
				return goerr.New("database does not exist", goerr.V("path", settings.DatabasePath()))
			}

			stores, err := repoCfg.Configure()
			if err != nil {
				return err
			}
			repo, err := stores.Open(ctx, settings.DatabasePath())
			if err != nil {
				return goerr.Wrap(err, "failed to open database", goerr.V("path", settings.DatabasePath()))
			}
			defer safe.Close(ctx, repo)

			entries, err := repo.Risk().List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list risk entries")
			}

			var issues int
			for _, e := range entries {
				if err := e.Validate(); err != nil {
					issues++
					logger.Warn("Invalid risk entry found", "id", e.ID, "error", err)
				}
			}
			if issues > 0 {
				return fmt.Errorf("DB consistency check found %d issue(s)", issues)
			}

			counts := model.NewMatrix(matrix, entries).CountBySeverity()
			logger.Info("DB consistency check passed", "risk_count", len(entries), "by_severity", counts)
			return nil
		},
	}
}
