package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

// RiskEntry is a single risk of a construction project's risk matrix
type RiskEntry struct {
	ID          types.RiskID
	Description string
	Category    types.CategoryID
	Probability types.Probability
	Impact      types.Impact
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the user-provided fields of the entry. ID and timestamps are owned by the repository.
func (r *RiskEntry) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return goerr.New("risk description is required")
	}
	if r.Category != "" {
		if err := r.Category.Validate(); err != nil {
			return goerr.Wrap(err, "invalid category")
		}
	}
	if err := r.Probability.Validate(); err != nil {
		return err
	}
	if err := r.Impact.Validate(); err != nil {
		return err
	}
	return nil
}

// Score returns probability x impact
func (r *RiskEntry) Score() int {
	return r.Probability.Int() * r.Impact.Int()
}

// Severity classifies the entry with the given matrix configuration
func (r *RiskEntry) Severity(cfg *config.MatrixConfig) types.Severity {
	return cfg.Classify(r.Probability, r.Impact).ID
}

// Copy returns a shallow copy so repositories never hand out their own pointer
func (r *RiskEntry) Copy() *RiskEntry {
	c := *r
	return &c
}
