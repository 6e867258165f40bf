package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
)

// RepositoryProvider hands out the store once it is available
type RepositoryProvider interface {
	Repository() (interfaces.Repository, error)
}

type RiskUseCase struct {
	store  RepositoryProvider
	matrix *config.MatrixConfig
}

func NewRiskUseCase(store RepositoryProvider, matrix *config.MatrixConfig) *RiskUseCase {
	if matrix == nil {
		matrix = config.DefaultMatrixConfig()
	}
	return &RiskUseCase{
		store:  store,
		matrix: matrix,
	}
}

func (uc *RiskUseCase) risks() (interfaces.RiskRepository, error) {
	repo, err := uc.store.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Risk(), nil
}

func (uc *RiskUseCase) ListRisks(ctx context.Context) ([]*model.RiskEntry, error) {
	risks, err := uc.risks()
	if err != nil {
		return nil, err
	}

	entries, err := risks.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risk entries", goerr.T(ErrTagServiceUnavailable))
	}
	return entries, nil
}

func (uc *RiskUseCase) GetRisk(ctx context.Context, id types.RiskID) (*model.RiskEntry, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid risk ID", goerr.V(RiskIDKey, id), goerr.T(ErrTagInvalidInput))
	}

	risks, err := uc.risks()
	if err != nil {
		return nil, err
	}

	entry, err := risks.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to get risk entry", id)
	}
	return entry, nil
}

// storeError maps a missing entry to ErrRiskNotFound and anything else to an unavailable store
func storeError(err error, msg string, id types.RiskID) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrRiskNotFound, "risk entry not found", goerr.V(RiskIDKey, id))
	}
	return goerr.Wrap(err, msg, goerr.V(RiskIDKey, id), goerr.T(ErrTagServiceUnavailable))
}

// CreateRisk registers a new risk entry with its initial assessment
func (uc *RiskUseCase) CreateRisk(ctx context.Context, description string, category types.CategoryID, probability types.Probability, impact types.Impact) (*model.RiskEntry, error) {
	entry := &model.RiskEntry{
		Description: strings.TrimSpace(description),
		Category:    category,
		Probability: probability,
		Impact:      impact,
	}
	if err := entry.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid risk entry", goerr.T(ErrTagInvalidInput))
	}

	risks, err := uc.risks()
	if err != nil {
		return nil, err
	}

	created, err := risks.Create(ctx, entry)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk entry", goerr.T(ErrTagServiceUnavailable))
	}

	logging.From(ctx).Info("Risk entry created",
		"id", created.ID,
		"severity", created.Severity(uc.matrix),
	)
	return created, nil
}

// UpdateAssessment changes the probability and impact of an existing entry
func (uc *RiskUseCase) UpdateAssessment(ctx context.Context, id types.RiskID, probability types.Probability, impact types.Impact) (*model.RiskEntry, error) {
	if err := probability.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid probability", goerr.V(RiskIDKey, id), goerr.T(ErrTagInvalidInput))
	}
	if err := impact.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid impact", goerr.V(RiskIDKey, id), goerr.T(ErrTagInvalidInput))
	}

	existing, err := uc.GetRisk(ctx, id)
	if err != nil {
		return nil, err
	}

	risks, err := uc.risks()
	if err != nil {
		return nil, err
	}

	existing.Probability = probability
	existing.Impact = impact
	updated, err := risks.Update(ctx, existing)
	if err != nil {
		return nil, storeError(err, "failed to update risk entry", id)
	}
	return updated, nil
}

// BuildMatrix places every registered entry on the probability x impact grid
func (uc *RiskUseCase) BuildMatrix(ctx context.Context) (*model.Matrix, error) {
	entries, err := uc.ListRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewMatrix(uc.matrix, entries), nil
}

// Severity classifies an entry with the configured bands
func (uc *RiskUseCase) Severity(entry *model.RiskEntry) config.SeverityLevel {
	return uc.matrix.Classify(entry.Probability, entry.Impact)
}
