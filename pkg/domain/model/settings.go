package model

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

// DatabaseFileName is the name of the store file inside the data directory
const DatabaseFileName = "database.db"

// Settings is the configuration snapshot computed once at process start.
// It is read-only after construction and passed explicitly to every component.
type Settings struct {
	Environment  types.Environment
	Debug        bool
	BaseDir      string
	DataDir      string
	ExportDir    string
	TemplateDir  string
	DatabaseFile string
}

// NewSettings lays out the directory tree below baseDir. An empty databaseFile selects
// the default file inside the data directory.
func NewSettings(env types.Environment, debug bool, baseDir, databaseFile string) *Settings {
	dataDir := filepath.Join(baseDir, "data")
	if databaseFile == "" {
		databaseFile = filepath.Join(dataDir, DatabaseFileName)
	}

	return &Settings{
		Environment:  env,
		Debug:        debug,
		BaseDir:      baseDir,
		DataDir:      dataDir,
		ExportDir:    filepath.Join(baseDir, "exports", "output"),
		TemplateDir:  filepath.Join(baseDir, "exports", "templates"),
		DatabaseFile: databaseFile,
	}
}

// DatabasePath returns the location of the store file
func (s *Settings) DatabasePath() string {
	return s.DatabaseFile
}

// Directories returns every directory that must exist before the store is touched
func (s *Settings) Directories() []string {
	dirs := []string{s.DataDir, s.ExportDir, s.TemplateDir}
	if dbDir := filepath.Dir(s.DatabaseFile); dbDir != s.DataDir {
		dirs = append(dirs, dbDir)
	}
	return dirs
}

// EnsureDirectories creates the required directories. Existing directories are not an error.
func (s *Settings) EnsureDirectories() error {
	for _, dir := range s.Directories() {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return goerr.Wrap(err, "failed to create directory", goerr.V("dir", dir))
		}
	}
	return nil
}

// IsFirstRun reports whether the store file does not exist yet
func (s *Settings) IsFirstRun() bool {
	_, err := os.Stat(s.DatabaseFile)
	return errors.Is(err, os.ErrNotExist)
}

// EnvironmentInfo is the diagnostic snapshot exposed to the page and the API
type EnvironmentInfo struct {
	Environment   types.Environment `json:"environment"`
	Debug         bool              `json:"debug"`
	DatabasePath  string            `json:"database_path"`
	BaseDirectory string            `json:"base_directory"`
}

// EnvironmentInfo returns the diagnostic snapshot of the settings
func (s *Settings) EnvironmentInfo() EnvironmentInfo {
	return EnvironmentInfo{
		Environment:   s.Environment,
		Debug:         s.Debug,
		DatabasePath:  s.DatabaseFile,
		BaseDirectory: s.BaseDir,
	}
}
