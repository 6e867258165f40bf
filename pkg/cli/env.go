package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/cli/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdEnv() *cli.Command {
	var settingsCfg config.Settings
	var asJSON bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, settingsCfg.Flags()...)

	return &cli.Command{
		Name:  "env",
		Usage: "Show the resolved environment and storage location",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			settings, err := settingsCfg.Configure(config.Environ())
			if err != nil {
				return goerr.Wrap(err, "failed to configure settings")
			}

			if asJSON {
				return printEnvJSON(c.Root().Writer, settings)
			}
			printEnv(c.Root().Writer, settings)
			return nil
		},
	}
}

func printEnvJSON(w io.Writer, settings *model.Settings) error {
	out := struct {
		model.EnvironmentInfo
		FirstRun bool `json:"first_run"`
	}{
		EnvironmentInfo: settings.EnvironmentInfo(),
		FirstRun:        settings.IsFirstRun(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return goerr.Wrap(err, "failed to encode environment info")
	}
	return nil
}

func printEnv(w io.Writer, settings *model.Settings) {
	info := settings.EnvironmentInfo()
	key := color.New(color.FgHiCyan).SprintFunc()
	on := color.New(color.FgGreen, color.Bold).SprintFunc()
	off := color.New(color.FgYellow).SprintFunc()

	flag := func(b bool) string {
		if b {
			return on("yes")
		}
		return off("no")
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", key("Environment:   "), on(info.Environment.Label()))
	_, _ = fmt.Fprintf(w, "%s %s\n", key("Debug:         "), flag(info.Debug))
	_, _ = fmt.Fprintf(w, "%s %s\n", key("Base directory:"), info.BaseDirectory)
	_, _ = fmt.Fprintf(w, "%s %s\n", key("Database:      "), info.DatabasePath)
	_, _ = fmt.Fprintf(w, "%s %s\n", key("First run:     "), flag(settings.IsFirstRun()))
}
