package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/repository/memory"
	"github.com/secmon-lab/riskmatrix/pkg/repository/sqlite"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("RISKMATRIX_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// Configure returns the store factory of the configured backend
func (r *Repository) Configure() (interfaces.StoreFactory, error) {
	switch r.backend {
	case "sqlite", "":
		logging.Default().Debug("Using SQLite repository")
		return sqlite.Factory{}, nil

	case "memory":
		logging.Default().Warn("Using in-memory repository (development mode); data is lost on exit")
		return memory.NewFactory(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown backend", goerr.V("backend", r.backend))
	}
}
