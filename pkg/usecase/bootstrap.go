package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/usecase/seed"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/safe"
)

// BootstrapUseCase creates the persistent store on first run and seeds it
type BootstrapUseCase struct {
	settings *model.Settings
	stores   interfaces.StoreFactory
	seed     *seed.Set
	now      func() time.Time
}

func NewBootstrapUseCase(settings *model.Settings, stores interfaces.StoreFactory, seedSet *seed.Set) *BootstrapUseCase {
	return &BootstrapUseCase{
		settings: settings,
		stores:   stores,
		seed:     seedSet,
		now:      time.Now,
	}
}

// InitDatabase opens the store, claiming it when absent. claimed is true only for the caller that
// created the store; it gets an unpublished staging store that it must seed and then Publish.
// Every other caller, including losers of a concurrent creation, gets the published store with
// claimed=false and must not seed it. Losers wait until the winner publishes.
func (uc *BootstrapUseCase) InitDatabase(ctx context.Context) (repo interfaces.Repository, claimed bool, err error) {
	path := uc.settings.DatabasePath()

	if uc.settings.IsFirstRun() {
		return uc.claimOrOpen(ctx, path)
	}

	repo, err = uc.stores.Open(ctx, path)
	if errors.Is(err, interfaces.ErrStoreMissing) {
		logging.From(ctx).Info("Database is not usable, claiming it again", "path", path, "reason", err.Error())
		return uc.claimOrOpen(ctx, path)
	}
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to open database",
			goerr.V(PathKey, path), goerr.T(ErrTagBootstrap))
	}
	return repo, false, nil
}

// claimAttempts bounds how often a caller tries to claim a store that keeps being released by
// failed claimants
const claimAttempts = 2

func (uc *BootstrapUseCase) claimOrOpen(ctx context.Context, path string) (interfaces.Repository, bool, error) {
	logger := logging.From(ctx)

	for attempt := 1; ; attempt++ {
		repo, err := uc.stores.Create(ctx, path)
		if err == nil {
			logger.Info("Created database", "path", path)
			return repo, true, nil
		}
		if !errors.Is(err, interfaces.ErrStoreExists) {
			return nil, false, goerr.Wrap(err, "failed to create database",
				goerr.V(PathKey, path), goerr.T(ErrTagBootstrap))
		}

		logger.Info("Database is created by another instance", "path", path)
		repo, err = uc.stores.Open(ctx, path)
		if err == nil {
			return repo, false, nil
		}
		if !errors.Is(err, interfaces.ErrStoreMissing) || attempt >= claimAttempts {
			return nil, false, goerr.Wrap(err, "failed to open database created by another instance",
				goerr.V(PathKey, path), goerr.T(ErrTagBootstrap))
		}
		logger.Warn("Another instance released the database claim, claiming again", "path", path)
	}
}

// LoadSampleData inserts the seed set in one batch and records it. It must run once,
// right after InitDatabase returned claimed=true.
func (uc *BootstrapUseCase) LoadSampleData(ctx context.Context, repo interfaces.Repository) (int, error) {
	if uc.seed == nil {
		return 0, goerr.New("seed data is not configured", goerr.T(ErrTagBootstrap))
	}

	created, err := repo.Risk().CreateMany(ctx, uc.seed.Copy())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to load sample data", goerr.T(ErrTagBootstrap))
	}

	if err := repo.MarkSeeded(ctx, uc.seed.Version, uc.now()); err != nil {
		return 0, goerr.Wrap(err, "failed to record sample data", goerr.T(ErrTagBootstrap))
	}

	logging.From(ctx).Info("Loaded sample data", "count", len(created), "version", uc.seed.Version)
	return len(created), nil
}

// Publish makes a seeded staging store visible to other instances and reopens it for this process.
// When publishing fails the staging store is discarded. A failure to reopen leaves the published
// store in place since it is complete.
func (uc *BootstrapUseCase) Publish(ctx context.Context, staging interfaces.Repository) (interfaces.Repository, error) {
	path := uc.settings.DatabasePath()

	if err := uc.stores.Publish(ctx, path, staging); err != nil {
		uc.Discard(ctx, staging)
		return nil, goerr.Wrap(err, "failed to publish database",
			goerr.V(PathKey, path), goerr.T(ErrTagBootstrap))
	}

	repo, err := uc.stores.Open(ctx, path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open published database",
			goerr.V(PathKey, path), goerr.T(ErrTagBootstrap))
	}

	logging.From(ctx).Info("Published database", "path", path)
	return repo, nil
}

// Discard closes a staging store whose bootstrap failed and releases the claim so the next start,
// or an instance waiting for the store, retries
func (uc *BootstrapUseCase) Discard(ctx context.Context, repo interfaces.Repository) {
	safe.Close(ctx, repo)

	path := uc.settings.DatabasePath()
	if err := uc.stores.Remove(path); err != nil {
		logging.From(ctx).Error("Failed to remove half-initialized database", "path", path, "error", err)
	}
}
