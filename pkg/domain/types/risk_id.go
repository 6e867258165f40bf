package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// RiskID is the stable identifier of a risk entry
type RiskID string

// NewRiskID generates a new time-ordered RiskID
func NewRiskID() RiskID {
	return RiskID(uuid.Must(uuid.NewV7()).String())
}

// Validate checks if the RiskID is a UUID
func (id RiskID) Validate() error {
	if id == "" {
		return goerr.New("risk ID cannot be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return goerr.Wrap(err, "risk ID must be a UUID", goerr.V("id", id))
	}
	return nil
}

// String returns the string representation of RiskID
func (id RiskID) String() string {
	return string(id)
}
