package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Environment variables read by the settings provider
const (
	EnvCloud       = "RISKMATRIX_CLOUD"
	EnvDatabaseURL = "RISKMATRIX_DATABASE_URL"
	EnvDebug       = "RISKMATRIX_DEBUG"
)

const sqliteURLPrefix = "sqlite:///"

type environment struct {
	DatabaseURL string `env:"RISKMATRIX_DATABASE_URL"`
	Debug       *bool  `env:"RISKMATRIX_DEBUG"`
}

// Settings holds CLI flags for the directory layout and builds the settings snapshot
type Settings struct {
	baseDir string
}

// Flags returns CLI flags for settings
func (s *Settings) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-dir",
			Usage:       "Base directory holding data/ and exports/",
			Value:       ".",
			Sources:     cli.EnvVars("RISKMATRIX_BASE_DIR"),
			Destination: &s.baseDir,
		},
	}
}

// ResolveEnvironment returns cloud when the cloud indicator variable is present, whatever its value
func ResolveEnvironment(environ map[string]string) types.Environment {
	if _, ok := environ[EnvCloud]; ok {
		return types.EnvironmentCloud
	}
	return types.EnvironmentLocal
}

// Environ returns the process environment as a map
func Environ() map[string]string {
	return env.ToMap(os.Environ())
}

// Configure builds the settings snapshot from environ. It does not touch the filesystem.
func (s *Settings) Configure(environ map[string]string) (*model.Settings, error) {
	var vars environment
	if err := env.ParseWithOptions(&vars, env.Options{Environment: environ}); err != nil {
		return nil, goerr.Wrap(err, "failed to parse environment variables")
	}

	baseDir := s.baseDir
	if baseDir == "" {
		baseDir = "."
	}
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve base directory", goerr.V("base_dir", s.baseDir))
	}

	mode := ResolveEnvironment(environ)

	debug := !mode.IsCloud()
	if vars.Debug != nil {
		debug = *vars.Debug
	}

	var dbFile string
	if !mode.IsCloud() && vars.DatabaseURL != "" {
		dbFile, err = ParseDatabaseURL(vars.DatabaseURL, baseDir)
		if err != nil {
			return nil, err
		}
	}

	return model.NewSettings(mode, debug, baseDir, dbFile), nil
}

// ParseDatabaseURL turns a plain path or a sqlite:/// URL into a file path. Relative paths are
// resolved against baseDir.
func ParseDatabaseURL(raw, baseDir string) (string, error) {
	path := raw
	switch {
	case strings.HasPrefix(raw, sqliteURLPrefix):
		path = strings.TrimPrefix(raw, sqliteURLPrefix)
	case strings.Contains(raw, "://"):
		return "", goerr.Wrap(ErrInvalidDatabase, "only local sqlite databases are supported",
			goerr.V("scheme", raw[:strings.Index(raw, "://")]))
	}

	if path == "" {
		return "", goerr.Wrap(ErrInvalidDatabase, "database path is empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path), nil
}
