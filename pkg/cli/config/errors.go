package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound  = goerr.New("configuration file not found")
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrDuplicateID     = goerr.New("duplicate ID")
	ErrInvalidScore    = goerr.New("invalid score")
	ErrMissingName     = goerr.New("name is required")
	ErrInvalidBackend  = goerr.New("invalid repository backend")
	ErrInvalidDatabase = goerr.New("invalid database URL")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	LevelIDKey    = "level_id"
)
