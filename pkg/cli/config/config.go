package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the matrix configuration file. Omitted sections keep their defaults.
type AppConfig struct {
	App         *AppInfo        `toml:"app"`
	Probability []Level         `toml:"probability"`
	Impact      []Level         `toml:"impact"`
	Severity    []SeverityLevel `toml:"severity"`

	path string
}

// AppInfo overrides the identity shown on every page
type AppInfo struct {
	Name         string `toml:"name"`
	Version      string `toml:"version"`
	Icon         string `toml:"icon"`
	Organization string `toml:"organization"`
	Department   string `toml:"department"`
	Contact      string `toml:"contact"`
}

// Level represents a probability or impact level
type Level struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Score       int    `toml:"score"`
}

// Validate checks if the Level is valid
func (l *Level) Validate() error {
	id := types.LevelID(l.ID)
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid level ID")
	}
	if l.Name == "" {
		return goerr.Wrap(ErrMissingName, "level name is required", goerr.V(LevelIDKey, l.ID))
	}
	if l.Score < types.MinScore || l.Score > types.MaxScore {
		return goerr.Wrap(ErrInvalidScore, "level score must be between 1 and 5",
			goerr.V(LevelIDKey, l.ID), goerr.V("score", l.Score))
	}
	return nil
}

// SeverityLevel represents a severity band
type SeverityLevel struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	MaxScore int    `toml:"max_score"`
	Color    string `toml:"color"`
}

// Validate checks if the SeverityLevel is valid
func (s *SeverityLevel) Validate() error {
	if _, err := types.ParseSeverity(s.ID); err != nil {
		return goerr.Wrap(err, "invalid severity ID", goerr.V(LevelIDKey, s.ID))
	}
	if s.Name == "" {
		return goerr.Wrap(ErrMissingName, "severity name is required", goerr.V(LevelIDKey, s.ID))
	}
	if s.MaxScore < 1 {
		return goerr.Wrap(ErrInvalidScore, "severity max_score must be positive",
			goerr.V(LevelIDKey, s.ID), goerr.V("max_score", s.MaxScore))
	}
	return nil
}

func validateLevels(axis string, levels []Level) error {
	if len(levels) == 0 {
		return nil
	}
	if len(levels) != types.MaxScore {
		return goerr.Wrap(ErrInvalidConfig, "axis must define exactly 5 levels",
			goerr.V("axis", axis), goerr.V("count", len(levels)))
	}

	ids := make(map[string]bool)
	scores := make(map[int]bool)
	for _, l := range levels {
		if err := l.Validate(); err != nil {
			return goerr.Wrap(err, "invalid level", goerr.V("axis", axis))
		}
		if ids[l.ID] {
			return goerr.Wrap(ErrDuplicateID, "duplicate level ID", goerr.V("axis", axis), goerr.V(LevelIDKey, l.ID))
		}
		ids[l.ID] = true
		if scores[l.Score] {
			return goerr.Wrap(ErrInvalidScore, "duplicate level score", goerr.V("axis", axis), goerr.V("score", l.Score))
		}
		scores[l.Score] = true
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := validateLevels("probability", a.Probability); err != nil {
		return err
	}
	if err := validateLevels("impact", a.Impact); err != nil {
		return err
	}

	if len(a.Severity) == 0 {
		return nil
	}
	ids := make(map[string]bool)
	prev := 0
	for _, s := range a.Severity {
		if err := s.Validate(); err != nil {
			return goerr.Wrap(err, "invalid severity")
		}
		if ids[s.ID] {
			return goerr.Wrap(ErrDuplicateID, "duplicate severity ID", goerr.V(LevelIDKey, s.ID))
		}
		ids[s.ID] = true
		if s.MaxScore <= prev {
			return goerr.Wrap(ErrInvalidScore, "severity bands must be in ascending max_score order",
				goerr.V(LevelIDKey, s.ID), goerr.V("max_score", s.MaxScore))
		}
		prev = s.MaxScore
	}
	if prev < types.MaxScore*types.MaxScore {
		return goerr.Wrap(ErrInvalidScore, "last severity band must cover the maximum score",
			goerr.V("max_score", prev))
	}

	return nil
}

// Flags returns CLI flags for the matrix configuration file
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Matrix configuration file (TOML). Built-in matrix is used when omitted",
			Category:    "Matrix",
			Sources:     cli.EnvVars("RISKMATRIX_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure loads the file given by --config, or returns the built-in matrix
func (a *AppConfig) Configure() (*domainConfig.MatrixConfig, error) {
	if a.path == "" {
		return domainConfig.DefaultMatrixConfig(), nil
	}

	loaded, err := LoadAppConfiguration(a.path)
	if err != nil {
		return nil, err
	}
	return loaded.ToDomainMatrixConfig(), nil
}

// LoadAppConfiguration loads the matrix configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToDomainMatrixConfig converts AppConfig to the domain MatrixConfig, filling omitted sections with defaults
func (a *AppConfig) ToDomainMatrixConfig() *domainConfig.MatrixConfig {
	cfg := domainConfig.DefaultMatrixConfig()

	if a.App != nil {
		cfg.App = mergeAppInfo(cfg.App, a.App)
	}
	if len(a.Probability) > 0 {
		cfg.Probability = toDomainLevels(a.Probability)
	}
	if len(a.Impact) > 0 {
		cfg.Impact = toDomainLevels(a.Impact)
	}
	if len(a.Severity) > 0 {
		cfg.Severity = make([]domainConfig.SeverityLevel, len(a.Severity))
		for i, s := range a.Severity {
			cfg.Severity[i] = domainConfig.SeverityLevel{
				ID:       types.Severity(s.ID),
				Name:     s.Name,
				MaxScore: s.MaxScore,
				Color:    s.Color,
			}
		}
	}

	return cfg
}

func toDomainLevels(levels []Level) []domainConfig.Level {
	result := make([]domainConfig.Level, len(levels))
	for i, l := range levels {
		result[i] = domainConfig.Level{
			ID:          types.LevelID(l.ID),
			Name:        l.Name,
			Description: l.Description,
			Score:       l.Score,
		}
	}
	return result
}

func mergeAppInfo(base domainConfig.AppInfo, o *AppInfo) domainConfig.AppInfo {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return domainConfig.AppInfo{
		Name:         pick(o.Name, base.Name),
		Version:      pick(o.Version, base.Version),
		Icon:         pick(o.Icon, base.Icon),
		Organization: pick(o.Organization, base.Organization),
		Department:   pick(o.Department, base.Department),
		Contact:      pick(o.Contact, base.Contact),
	}
}
