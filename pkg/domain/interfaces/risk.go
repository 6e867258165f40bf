package interfaces

import (
	"context"

	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

type RiskRepository interface {
	// Create stores a new entry. A zero ID is replaced by a generated one; timestamps are set by the repository.
	Create(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error)

	// CreateMany stores entries atomically: either all are stored or none
	CreateMany(ctx context.Context, entries []*model.RiskEntry) ([]*model.RiskEntry, error)

	// Get retrieves an entry by ID
	Get(ctx context.Context, id types.RiskID) (*model.RiskEntry, error)

	// List retrieves all entries ordered by creation time
	List(ctx context.Context) ([]*model.RiskEntry, error)

	// Count returns the number of stored entries
	Count(ctx context.Context) (int, error)

	// Update replaces the mutable fields of an existing entry. ID and CreatedAt never change.
	Update(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error)
}
