package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/utils/errutil"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
	"github.com/secmon-lab/riskmatrix/pkg/utils/safe"
	"golang.org/x/sync/singleflight"
)

// AppUseCase is the application shell: it drives the startup state machine once per process and
// serves the read-only home page data.
type AppUseCase struct {
	settings  *model.Settings
	bootstrap *BootstrapUseCase
	matrix    *config.MatrixConfig
	metrics   *metrics.Metrics

	state atomic.Int32
	group singleflight.Group

	mu   sync.RWMutex
	repo interfaces.Repository
	err  error
}

func NewAppUseCase(settings *model.Settings, bootstrap *BootstrapUseCase, matrix *config.MatrixConfig, m *metrics.Metrics) *AppUseCase {
	if matrix == nil {
		matrix = config.DefaultMatrixConfig()
	}
	return &AppUseCase{
		settings:  settings,
		bootstrap: bootstrap,
		matrix:    matrix,
		metrics:   m,
	}
}

// State returns the current lifecycle state
func (uc *AppUseCase) State() types.AppState {
	return types.AppState(uc.state.Load())
}

func (uc *AppUseCase) setState(ctx context.Context, s types.AppState) {
	uc.state.Store(int32(s))
	uc.metrics.SetState(s)
	logging.From(ctx).Debug("App state changed", "state", s.String())
}

// Err returns the error that moved the shell to FAILED
func (uc *AppUseCase) Err() error {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.err
}

// Settings returns the configuration snapshot
func (uc *AppUseCase) Settings() *model.Settings {
	return uc.settings
}

// Matrix returns the matrix configuration
func (uc *AppUseCase) Matrix() *config.MatrixConfig {
	return uc.matrix
}

// InitializeApp runs initialization and reports whether the shell is READY
func (uc *AppUseCase) InitializeApp(ctx context.Context) bool {
	return uc.Initialize(ctx) == nil
}

// Initialize runs the startup state machine. Concurrent callers share a single run, and once a
// terminal state is reached its outcome is returned without running again.
func (uc *AppUseCase) Initialize(ctx context.Context) error {
	switch uc.State() {
	case types.AppStateReady:
		return nil
	case types.AppStateFailed:
		return uc.Err()
	}

	_, err, _ := uc.group.Do("initialize", func() (any, error) {
		return nil, uc.initialize(ctx)
	})
	return err
}

func (uc *AppUseCase) initialize(ctx context.Context) error {
	// A previous flight may have finished between the state check and Do
	switch uc.State() {
	case types.AppStateReady:
		return nil
	case types.AppStateFailed:
		return uc.Err()
	}

	uc.setState(ctx, types.AppStateConfiguring)
	if err := uc.settings.EnsureDirectories(); err != nil {
		return uc.fail(ctx, goerr.Wrap(err, "failed to prepare directories",
			goerr.V(StateKey, types.AppStateConfiguring.String()), goerr.T(ErrTagConfiguration)))
	}

	missing := uc.settings.IsFirstRun()
	if missing {
		uc.setState(ctx, types.AppStateStoreMissing)
	} else {
		uc.setState(ctx, types.AppStateStorePresent)
	}

	repo, claimed, err := uc.bootstrap.InitDatabase(ctx)
	if err != nil {
		return uc.fail(ctx, err)
	}

	if claimed {
		// The store was released by a failed claimant after it looked present
		if !missing {
			uc.setState(ctx, types.AppStateStoreMissing)
		}
		uc.setState(ctx, types.AppStateSeeding)
		if _, err := uc.bootstrap.LoadSampleData(ctx, repo); err != nil {
			uc.bootstrap.Discard(ctx, repo)
			return uc.fail(ctx, err)
		}
		published, err := uc.bootstrap.Publish(ctx, repo)
		if err != nil {
			return uc.fail(ctx, err)
		}
		repo = published
		uc.metrics.ObserveBootstrap(metrics.OutcomeSeeded)
	} else {
		if missing {
			uc.setState(ctx, types.AppStateStorePresent)
		}
		uc.metrics.ObserveBootstrap(metrics.OutcomePresent)
	}

	uc.mu.Lock()
	uc.repo = repo
	uc.mu.Unlock()

	uc.setState(ctx, types.AppStateReady)
	logging.From(ctx).Info("Application initialized",
		"environment", uc.settings.Environment,
		"database_path", uc.settings.DatabasePath(),
		"seeded", claimed,
	)
	return nil
}

func (uc *AppUseCase) fail(ctx context.Context, err error) error {
	uc.mu.Lock()
	uc.err = err
	uc.mu.Unlock()

	uc.setState(ctx, types.AppStateFailed)
	uc.metrics.ObserveBootstrap(metrics.OutcomeFailed)
	return errutil.Handle(ctx, err, "failed to initialize application")
}

// Repository returns the store once the shell is READY
func (uc *AppUseCase) Repository() (interfaces.Repository, error) {
	if uc.State() != types.AppStateReady {
		return nil, goerr.Wrap(ErrNotReady, "store is not available",
			goerr.V(StateKey, uc.State().String()), goerr.T(ErrTagServiceUnavailable))
	}

	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if uc.repo == nil {
		return nil, goerr.Wrap(ErrNotReady, "store is closed", goerr.T(ErrTagServiceUnavailable))
	}
	return uc.repo, nil
}

// RiskCount reads the number of registered risk entries. Failures are returned inside the result
// so the caller can render a placeholder instead of stopping.
func (uc *AppUseCase) RiskCount(ctx context.Context) model.RiskCount {
	repo, err := uc.Repository()
	if err != nil {
		return model.RiskCount{Err: err}
	}

	n, err := repo.Risk().Count(ctx)
	if err != nil {
		err = goerr.Wrap(err, "failed to count risk entries", goerr.T(ErrTagServiceUnavailable))
		logging.From(ctx).Warn("Risk count unavailable", "error", err)
		return model.RiskCount{Err: err}
	}

	uc.metrics.SetRiskEntries(n)
	return model.RiskCount{Value: n}
}

// HomeView assembles the home page. It returns the startup error when the shell is not READY.
func (uc *AppUseCase) HomeView(ctx context.Context) (*model.HomeView, error) {
	if err := uc.Initialize(ctx); err != nil {
		return nil, err
	}

	return &model.HomeView{
		App:         uc.matrix.App,
		Environment: uc.settings.EnvironmentInfo(),
		Steps:       model.WizardSteps(),
		RiskCount:   uc.RiskCount(ctx),
	}, nil
}

// Close releases the store
func (uc *AppUseCase) Close(ctx context.Context) {
	uc.mu.Lock()
	repo := uc.repo
	uc.repo = nil
	uc.mu.Unlock()

	safe.Close(ctx, repo)
}
