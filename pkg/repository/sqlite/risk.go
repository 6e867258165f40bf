package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

const riskColumns = `id, description, category, probability, impact, created_at, updated_at`

type riskRepository struct {
	db *sql.DB
}

func newRiskRepository(db *sql.DB) *riskRepository {
	return &riskRepository{db: db}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRisk(ctx context.Context, ex execer, entry *model.RiskEntry, now time.Time) (*model.RiskEntry, error) {
	created := entry.Copy()
	if created.ID == "" {
		created.ID = types.NewRiskID()
	}
	// Timestamps are stored with millisecond precision
	created.CreatedAt = fromMillis(toMillis(now))
	created.UpdatedAt = created.CreatedAt

	if _, err := ex.ExecContext(ctx,
		`INSERT INTO risk_entries (`+riskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(created.ID),
		created.Description,
		string(created.Category),
		created.Probability.Int(),
		created.Impact.Int(),
		toMillis(created.CreatedAt),
		toMillis(created.UpdatedAt),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to insert risk entry", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *riskRepository) Create(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error) {
	return insertRisk(ctx, r.db, entry, time.Now())
}

func (r *riskRepository) CreateMany(ctx context.Context, entries []*model.RiskEntry) ([]*model.RiskEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	created := make([]*model.RiskEntry, 0, len(entries))
	for _, entry := range entries {
		c, err := insertRisk(ctx, tx, entry, now)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit risk entries", goerr.V("count", len(entries)))
	}
	return created, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRisk(row scanner) (*model.RiskEntry, error) {
	var (
		id, description, category string
		probability, impact       int
		createdAt, updatedAt      int64
	)
	if err := row.Scan(&id, &description, &category, &probability, &impact, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &model.RiskEntry{
		ID:          types.RiskID(id),
		Description: description,
		Category:    types.CategoryID(category),
		Probability: types.Probability(probability),
		Impact:      types.Impact(impact),
		CreatedAt:   fromMillis(createdAt),
		UpdatedAt:   fromMillis(updatedAt),
	}, nil
}

func (r *riskRepository) Get(ctx context.Context, id types.RiskID) (*model.RiskEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+riskColumns+` FROM risk_entries WHERE id = ?`, string(id))
	entry, err := scanRisk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk entry not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk entry", goerr.V("id", id))
	}
	return entry, nil
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+riskColumns+` FROM risk_entries ORDER BY created_at, id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risk entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []*model.RiskEntry{}
	for rows.Next() {
		entry, err := scanRisk(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan risk entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate risk entries")
	}

	return entries, nil
}

func (r *riskRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM risk_entries`).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count risk entries")
	}
	return count, nil
}

func (r *riskRepository) Update(ctx context.Context, entry *model.RiskEntry) (*model.RiskEntry, error) {
	existing, err := r.Get(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	updated := entry.Copy()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = fromMillis(toMillis(time.Now()))
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE risk_entries SET description = ?, category = ?, probability = ?, impact = ?, updated_at = ? WHERE id = ?`,
		updated.Description,
		string(updated.Category),
		updated.Probability.Int(),
		updated.Impact.Int(),
		toMillis(updated.UpdatedAt),
		string(updated.ID),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk entry", goerr.V("id", entry.ID))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk entry not found", goerr.V("id", entry.ID))
	}

	return updated, nil
}
