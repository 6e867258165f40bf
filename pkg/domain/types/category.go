package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// CategoryID identifies the work category a risk entry belongs to (e.g. "structural", "licensing")
type CategoryID string

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks if the CategoryID is valid
func (c CategoryID) Validate() error {
	if c == "" {
		return goerr.New("category ID cannot be empty")
	}
	if !idPattern.MatchString(string(c)) {
		return goerr.New("category ID must be lowercase alphanumeric with hyphens", goerr.V("id", c))
	}
	return nil
}

// String returns the string representation of CategoryID
func (c CategoryID) String() string {
	return string(c)
}

// LevelID identifies a probability, impact or severity level in the matrix configuration
type LevelID string

// Validate checks if the LevelID is valid
func (l LevelID) Validate() error {
	if l == "" {
		return goerr.New("level ID cannot be empty")
	}
	if !idPattern.MatchString(string(l)) {
		return goerr.New("level ID must be lowercase alphanumeric with hyphens", goerr.V("id", l))
	}
	return nil
}

// String returns the string representation of LevelID
func (l LevelID) String() string {
	return string(l)
}
