package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

type riskRepository struct {
	mu    sync.RWMutex
	risks map[types.RiskID]*model.RiskEntry
}

func newRiskRepository() *riskRepository {
	return &riskRepository{
		risks: make(map[types.RiskID]*model.RiskEntry),
	}
}

func (r *riskRepository) newEntry(entry *model.RiskEntry, now time.Time) (*model.RiskEntry, error) {
	created := entry.Copy()
	if created.ID == "" {
		created.ID = types.NewRiskID()
	}
	if _, exists := r.risks[created.ID]; exists {
		return nil, goerr.New("risk entry already exists", goerr.V("id", created.ID))
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return created, nil
}

func (r *riskRepository) Create(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created, err := r.newEntry(entry, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	r.risks[created.ID] = created
	return created.Copy(), nil
}

func (r *riskRepository) CreateMany(ctx context.Context, entries []*model.RiskEntry) ([]*model.RiskEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := make([]*model.RiskEntry, 0, len(entries))
	seen := make(map[types.RiskID]struct{}, len(entries))
	for _, entry := range entries {
		c, err := r.newEntry(entry, now)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c.ID]; dup {
			return nil, goerr.New("duplicate risk entry in batch", goerr.V("id", c.ID))
		}
		seen[c.ID] = struct{}{}
		created = append(created, c)
	}

	result := make([]*model.RiskEntry, len(created))
	for i, c := range created {
		r.risks[c.ID] = c
		result[i] = c.Copy()
	}
	return result, nil
}

func (r *riskRepository) Get(ctx context.Context, id types.RiskID) (*model.RiskEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.risks[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk entry not found", goerr.V("id", id))
	}

	// Return a copy to prevent external modification
	return entry.Copy(), nil
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*model.RiskEntry, 0, len(r.risks))
	for _, entry := range r.risks {
		entries = append(entries, entry.Copy())
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

func (r *riskRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.risks), nil
}

func (r *riskRepository) Update(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.risks[entry.ID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk entry not found", goerr.V("id", entry.ID))
	}

	updated := entry.Copy()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}

	r.risks[updated.ID] = updated
	return updated.Copy(), nil
}
