package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdInit() *cli.Command {
	var appCfg appConfig

	return &cli.Command{
		Name:  "init",
		Usage: "Prepare directories and the database, loading sample data on first run",
		Flags: appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, err := appCfg.Configure(nil)
			if err != nil {
				return err
			}
			defer uc.App.Close(ctx)

			if err := uc.App.Initialize(ctx); err != nil {
				logging.Default().Error("Initialization failed", "message", usecase.UserMessage(err))
				return goerr.Wrap(err, "failed to initialize application")
			}

			count := uc.App.RiskCount(ctx)
			logging.Default().Info("Application is ready",
				"database_path", uc.App.Settings().DatabasePath(),
				"risk_count", count.Display(),
			)
			return nil
		},
	}
}
