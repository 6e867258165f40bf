package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/repository/memory"
	"github.com/secmon-lab/riskmatrix/pkg/repository/sqlite"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
	"github.com/secmon-lab/riskmatrix/pkg/usecase/seed"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
)

var errTest = errors.New("test error")

const seedCount = 14

func newSettings(t *testing.T) *model.Settings {
	t.Helper()
	return model.NewSettings(types.EnvironmentLocal, true, t.TempDir(), "")
}

// brokenRisks fails the operations selected by its flags
type brokenRisks struct {
	interfaces.RiskRepository
	failCount      bool
	failCreateMany bool
	failGet        bool
}

func (r *brokenRisks) Get(ctx context.Context, id types.RiskID) (*model.RiskEntry, error) {
	if r.failGet {
		return nil, errTest
	}
	return r.RiskRepository.Get(ctx, id)
}

func (r *brokenRisks) Count(ctx context.Context) (int, error) {
	if r.failCount {
		return 0, errTest
	}
	return r.RiskRepository.Count(ctx)
}

func (r *brokenRisks) CreateMany(ctx context.Context, entries []*model.RiskEntry) ([]*model.RiskEntry, error) {
	if r.failCreateMany {
		return nil, errTest
	}
	return r.RiskRepository.CreateMany(ctx, entries)
}

type brokenRepo struct {
	interfaces.Repository
	risks *brokenRisks
}

func (r *brokenRepo) Risk() interfaces.RiskRepository {
	return r.risks
}

type brokenFactory struct {
	*memory.Factory
	failCount      bool
	failCreateMany bool
	failGet        bool
}

func (f *brokenFactory) wrap(repo interfaces.Repository) interfaces.Repository {
	return &brokenRepo{
		Repository: repo,
		risks: &brokenRisks{
			RiskRepository: repo.Risk(),
			failCount:      f.failCount,
			failCreateMany: f.failCreateMany,
			failGet:        f.failGet,
		},
	}
}

func (f *brokenFactory) Create(ctx context.Context, path string) (interfaces.Repository, error) {
	repo, err := f.Factory.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return f.wrap(repo), nil
}

func (f *brokenFactory) Publish(ctx context.Context, path string, staging interfaces.Repository) error {
	if repo, ok := staging.(*brokenRepo); ok {
		staging = repo.Repository
	}
	return f.Factory.Publish(ctx, path, staging)
}

func (f *brokenFactory) Open(ctx context.Context, path string) (interfaces.Repository, error) {
	repo, err := f.Factory.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return f.wrap(repo), nil
}

func TestApp_FreshDeploySeeds(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	m := metrics.New()
	uc := usecase.New(settings, sqlite.Factory{}, usecase.WithMetrics(m))
	t.Cleanup(func() { uc.App.Close(ctx) })

	gt.Value(t, uc.App.State()).Equal(types.AppStateNotStarted)
	gt.Bool(t, uc.App.InitializeApp(ctx)).True()
	gt.Value(t, uc.App.State()).Equal(types.AppStateReady)

	count := uc.App.RiskCount(ctx)
	gt.Bool(t, count.Available()).True()
	gt.Value(t, count.Value).Equal(seedCount)
	gt.Value(t, count.Display()).Equal("14")

	_, err := os.Stat(settings.DatabasePath())
	gt.NoError(t, err)

	repo, err := uc.App.Repository()
	gt.NoError(t, err).Required()
	seededAt, err := repo.SeededAt(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, seededAt.IsZero()).False()

	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(1.0)
}

func TestApp_ExistingStoreIsNotSeeded(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	gt.NoError(t, settings.EnsureDirectories()).Required()

	existing := memory.New()
	for i := range 5 {
		_, err := existing.Risk().Create(ctx, &model.RiskEntry{
			Description: "Risco existente",
			Probability: types.Probability(i + 1),
			Impact:      types.Impact(1),
		})
		gt.NoError(t, err).Required()
	}

	factory := memory.NewFactory()
	gt.NoError(t, factory.Put(settings.DatabasePath(), existing)).Required()

	m := metrics.New()
	uc := usecase.New(settings, factory, usecase.WithMetrics(m))

	gt.Bool(t, settings.IsFirstRun()).False()
	gt.Bool(t, uc.App.InitializeApp(ctx)).True()
	gt.Value(t, uc.App.RiskCount(ctx).Value).Equal(5)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(0.0)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomePresent))).Equal(1.0)
}

func TestApp_RepeatedInitializationDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)

	first := usecase.New(settings, sqlite.Factory{})
	gt.Bool(t, first.App.InitializeApp(ctx)).True()
	gt.Bool(t, first.App.InitializeApp(ctx)).True()
	first.App.Close(ctx)

	// A restart finds the file and opens it as is
	second := usecase.New(settings, sqlite.Factory{})
	t.Cleanup(func() { second.App.Close(ctx) })
	gt.Bool(t, second.App.InitializeApp(ctx)).True()
	gt.Value(t, second.App.RiskCount(ctx).Value).Equal(seedCount)
}

func TestApp_ConfigurationFailure(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	// A regular file where the data directory should be
	gt.NoError(t, os.WriteFile(filepath.Join(base, "data"), []byte("x"), 0o600)).Required()
	settings := model.NewSettings(types.EnvironmentLocal, true, base, "")

	uc := usecase.New(settings, sqlite.Factory{})
	gt.Bool(t, uc.App.InitializeApp(ctx)).False()
	gt.Value(t, uc.App.State()).Equal(types.AppStateFailed)

	err := uc.App.Err()
	gt.Value(t, err).NotNil()
	gt.Bool(t, goerr.HasTag(err, usecase.ErrTagConfiguration)).True()
	gt.String(t, usecase.UserMessage(err)).Contains(err.Error())

	_, statErr := os.Stat(settings.DatabasePath())
	gt.Value(t, statErr).NotNil()

	_, err = uc.App.HomeView(ctx)
	gt.Value(t, err).NotNil()

	// FAILED is terminal
	gt.Bool(t, uc.App.InitializeApp(ctx)).False()
}

func TestApp_SeedFailureRemovesStore(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	factory := &brokenFactory{Factory: memory.NewFactory(), failCreateMany: true}

	uc := usecase.New(settings, factory)
	gt.Bool(t, uc.App.InitializeApp(ctx)).False()

	err := uc.App.Err()
	gt.Bool(t, goerr.HasTag(err, usecase.ErrTagBootstrap)).True()
	gt.Value(t, usecase.UserMessage(err)).Equal(usecase.BootstrapFailureMessage)
	gt.Bool(t, settings.IsFirstRun()).True()

	// The next start claims the store again
	next := usecase.New(settings, memory.NewFactory())
	gt.Bool(t, next.App.InitializeApp(ctx)).True()
	gt.Value(t, next.App.RiskCount(ctx).Value).Equal(seedCount)
}

func TestApp_RiskCountPlaceholder(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	factory := &brokenFactory{Factory: memory.NewFactory(), failCount: true}

	uc := usecase.New(settings, factory)
	gt.Bool(t, uc.App.InitializeApp(ctx)).True()

	count := uc.App.RiskCount(ctx)
	gt.Bool(t, count.Available()).False()
	gt.Bool(t, goerr.HasTag(count.Err, usecase.ErrTagServiceUnavailable)).True()
	gt.Value(t, count.Display()).Equal(model.RiskCountPlaceholder)

	view, err := uc.App.HomeView(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, view.RiskCount.Display()).Equal(model.RiskCountPlaceholder)
	gt.Array(t, view.Steps).Length(4)
}

func TestApp_RiskCountBeforeInitialization(t *testing.T) {
	uc := usecase.New(newSettings(t), memory.NewFactory())

	count := uc.App.RiskCount(context.Background())
	gt.Bool(t, count.Available()).False()
	gt.Error(t, count.Err).Is(usecase.ErrNotReady)
}

func TestApp_ConcurrentInitializationSeedsOnce(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	m := metrics.New()
	uc := usecase.New(settings, memory.NewFactory(), usecase.WithMetrics(m))

	const n = 16
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = uc.App.InitializeApp(ctx)
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		gt.Bool(t, ok).True()
	}
	gt.Value(t, uc.App.RiskCount(ctx).Value).Equal(seedCount)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(1.0)
}

func TestApp_ConcurrentInstancesSeedOnce(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	m := metrics.New()

	const n = 4
	apps := make([]*usecase.UseCases, n)
	for i := range n {
		settings := model.NewSettings(types.EnvironmentLocal, true, base, "")
		apps[i] = usecase.New(settings, sqlite.Factory{}, usecase.WithMetrics(m))
	}
	t.Cleanup(func() {
		for _, uc := range apps {
			uc.App.Close(ctx)
		}
	})

	var wg sync.WaitGroup
	for _, uc := range apps {
		wg.Add(1)
		go func(uc *usecase.UseCases) {
			defer wg.Done()
			uc.App.InitializeApp(ctx)
		}(uc)
	}
	wg.Wait()

	for _, uc := range apps {
		gt.Value(t, uc.App.State()).Equal(types.AppStateReady)
	}
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(1.0)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomePresent))).Equal(float64(n - 1))
	gt.Value(t, apps[0].App.RiskCount(ctx).Value).Equal(seedCount)
}

func TestApp_InstanceWaitsWhileStoreIsSeeded(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	winnerSettings := model.NewSettings(types.EnvironmentLocal, true, base, "")
	gt.NoError(t, winnerSettings.EnsureDirectories()).Required()
	set, err := seed.Default()
	gt.NoError(t, err).Required()
	winner := usecase.NewBootstrapUseCase(winnerSettings, sqlite.Factory{}, set)

	staging, claimed, err := winner.InitDatabase(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, claimed).True()

	other := usecase.New(model.NewSettings(types.EnvironmentLocal, true, base, ""), sqlite.Factory{})
	t.Cleanup(func() { other.App.Close(ctx) })

	done := make(chan bool, 1)
	go func() {
		done <- other.App.InitializeApp(ctx)
	}()

	select {
	case <-done:
		t.Fatal("initialization finished before the store was seeded")
	case <-time.After(300 * time.Millisecond):
	}
	gt.Value(t, other.App.State()).NotEqual(types.AppStateReady)
	gt.Error(t, other.App.RiskCount(ctx).Err).Is(usecase.ErrNotReady)

	_, err = winner.LoadSampleData(ctx, staging)
	gt.NoError(t, err).Required()
	published, err := winner.Publish(ctx, staging)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { gt.NoError(t, published.Close()) })

	select {
	case ok := <-done:
		gt.Bool(t, ok).True()
	case <-time.After(10 * time.Second):
		t.Fatal("initialization did not finish after the store was published")
	}
	gt.Value(t, other.App.State()).Equal(types.AppStateReady)
	gt.Value(t, other.App.RiskCount(ctx).Value).Equal(seedCount)
}

func TestApp_InstanceClaimsStoreReleasedByFailedSeeder(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	winnerSettings := model.NewSettings(types.EnvironmentLocal, true, base, "")
	gt.NoError(t, winnerSettings.EnsureDirectories()).Required()
	winner := usecase.NewBootstrapUseCase(winnerSettings, sqlite.Factory{}, nil)

	staging, claimed, err := winner.InitDatabase(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, claimed).True()

	m := metrics.New()
	other := usecase.New(model.NewSettings(types.EnvironmentLocal, true, base, ""), sqlite.Factory{}, usecase.WithMetrics(m))
	t.Cleanup(func() { other.App.Close(ctx) })

	done := make(chan bool, 1)
	go func() {
		done <- other.App.InitializeApp(ctx)
	}()
	time.Sleep(200 * time.Millisecond)

	// The winner has no seed set, so its bootstrap fails and the claim is released
	_, err = winner.LoadSampleData(ctx, staging)
	gt.Value(t, err).NotNil()
	winner.Discard(ctx, staging)

	select {
	case ok := <-done:
		gt.Bool(t, ok).True()
	case <-time.After(10 * time.Second):
		t.Fatal("initialization did not finish after the claim was released")
	}
	gt.Value(t, other.App.RiskCount(ctx).Value).Equal(seedCount)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(1.0)

	// Writes land in the published file
	_, err = other.Risk.CreateRisk(ctx, "Vazamento na rede de gás", "safety", 3, 5)
	gt.NoError(t, err).Required()
	other.App.Close(ctx)

	restarted := usecase.New(model.NewSettings(types.EnvironmentLocal, true, base, ""), sqlite.Factory{})
	t.Cleanup(func() { restarted.App.Close(ctx) })
	gt.Bool(t, restarted.App.InitializeApp(ctx)).True()
	gt.Value(t, restarted.App.RiskCount(ctx).Value).Equal(seedCount + 1)
}

func TestApp_MemoryBackendSeedsAfterRestart(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)

	first := usecase.New(settings, memory.NewFactory())
	gt.Bool(t, first.App.InitializeApp(ctx)).True()
	gt.Value(t, first.App.RiskCount(ctx).Value).Equal(seedCount)
	first.App.Close(ctx)
	gt.Bool(t, settings.IsFirstRun()).False()

	restarted := usecase.New(settings, memory.NewFactory())
	gt.Bool(t, restarted.App.InitializeApp(ctx)).True()
	gt.Value(t, restarted.App.RiskCount(ctx).Value).Equal(seedCount)
}

func TestApp_MemoryBackendKeepsForeignFile(t *testing.T) {
	ctx := context.Background()
	settings := newSettings(t)
	gt.NoError(t, settings.EnsureDirectories()).Required()

	content := []byte("SQLite format 3\x00")
	gt.NoError(t, os.WriteFile(settings.DatabasePath(), content, 0o600)).Required()

	uc := usecase.New(settings, memory.NewFactory())
	gt.Bool(t, uc.App.InitializeApp(ctx)).False()
	gt.Bool(t, goerr.HasTag(uc.App.Err(), usecase.ErrTagBootstrap)).True()

	data, err := os.ReadFile(settings.DatabasePath())
	gt.NoError(t, err).Required()
	gt.Value(t, data).Equal(content)
}
