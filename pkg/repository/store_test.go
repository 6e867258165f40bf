package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/repository/memory"
	"github.com/secmon-lab/riskmatrix/pkg/repository/sqlite"
)

func runStoreFactoryTest(t *testing.T, factory interfaces.StoreFactory) {
	t.Helper()

	t.Run("Open fails when store is missing", func(t *testing.T) {
		_, err := factory.Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
		gt.Error(t, err).Is(interfaces.ErrStoreMissing)
	})

	t.Run("Create claims the file once", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		repo, err := factory.Create(ctx, path)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		_, err = os.Stat(path)
		gt.NoError(t, err)

		_, err = factory.Create(ctx, path)
		gt.Error(t, err).Is(interfaces.ErrStoreExists)
	})

	t.Run("Open sees data published after Create", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		repo, err := factory.Create(ctx, path)
		gt.NoError(t, err).Required()
		_, err = repo.Risk().Create(ctx, &model.RiskEntry{Description: "persisted", Probability: 2, Impact: 2})
		gt.NoError(t, err).Required()
		gt.NoError(t, factory.Publish(ctx, path, repo)).Required()

		reopened, err := factory.Open(ctx, path)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, reopened.Close()) }()

		count, err := reopened.Risk().Count(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(1)
	})

	t.Run("concurrent Create has exactly one winner", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		const n = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
			losers  int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				repo, err := factory.Create(ctx, path)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if errors.Is(err, interfaces.ErrStoreExists) {
						losers++
					}
					return
				}
				winners++
				_ = repo.Close()
			}()
		}
		wg.Wait()

		gt.Value(t, winners).Equal(1)
		gt.Value(t, losers).Equal(n - 1)
	})

	t.Run("Remove deletes the store", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		repo, err := factory.Create(ctx, path)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close()).Required()

		gt.NoError(t, factory.Remove(path)).Required()
		entries, err := os.ReadDir(filepath.Dir(path))
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)

		// Removing twice is not an error
		gt.NoError(t, factory.Remove(path))
	})

	t.Run("Open waits until the claimed store is published", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		staging, err := factory.Create(ctx, path)
		gt.NoError(t, err).Required()
		_, err = staging.Risk().Create(ctx, &model.RiskEntry{Description: "seeded", Probability: 1, Impact: 1})
		gt.NoError(t, err).Required()

		type result struct {
			repo interfaces.Repository
			err  error
		}
		done := make(chan result, 1)
		go func() {
			repo, err := factory.Open(ctx, path)
			done <- result{repo: repo, err: err}
		}()

		select {
		case <-done:
			t.Fatal("Open returned before Publish")
		case <-time.After(200 * time.Millisecond):
		}

		gt.NoError(t, factory.Publish(ctx, path, staging)).Required()

		select {
		case r := <-done:
			gt.NoError(t, r.err).Required()
			defer func() { gt.NoError(t, r.repo.Close()) }()
			count, err := r.repo.Risk().Count(ctx)
			gt.NoError(t, err).Required()
			gt.Value(t, count).Equal(1)
		case <-time.After(10 * time.Second):
			t.Fatal("Open did not return after Publish")
		}
	})

	t.Run("Open reports a released claim as missing", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "database.db")

		staging, err := factory.Create(ctx, path)
		gt.NoError(t, err).Required()

		done := make(chan error, 1)
		go func() {
			_, err := factory.Open(ctx, path)
			done <- err
		}()
		time.Sleep(100 * time.Millisecond)

		gt.NoError(t, staging.Close()).Required()
		gt.NoError(t, factory.Remove(path)).Required()

		select {
		case err := <-done:
			gt.Error(t, err).Is(interfaces.ErrStoreMissing)
		case <-time.After(10 * time.Second):
			t.Fatal("Open did not return after the claim was released")
		}
	})
}

func TestSQLiteStoreFactory(t *testing.T) {
	runStoreFactoryTest(t, sqlite.Factory{})
}

func TestSQLiteOpenTimesOutOnUnpublishedClaim(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "database.db")
	gt.NoError(t, os.WriteFile(path, nil, 0o600)).Required()

	_, err := sqlite.Factory{PublishWait: 100 * time.Millisecond}.Open(ctx, path)
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, interfaces.ErrStoreMissing)).False()
}

func TestSQLitePathWithURIDelimiters(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "obra?lote=1#a")
	gt.NoError(t, os.MkdirAll(dir, 0o750)).Required()
	path := filepath.Join(dir, "database.db")

	factory := sqlite.Factory{}
	staging, err := factory.Create(ctx, path)
	gt.NoError(t, err).Required()
	_, err = staging.Risk().Create(ctx, &model.RiskEntry{Description: "Fundação", Probability: 2, Impact: 3})
	gt.NoError(t, err).Required()
	gt.NoError(t, factory.Publish(ctx, path, staging)).Required()

	repo, err := factory.Open(ctx, path)
	gt.NoError(t, err).Required()
	defer func() { gt.NoError(t, repo.Close()) }()

	count, err := repo.Risk().Count(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, count).Equal(1)

	info, err := os.Stat(path)
	gt.NoError(t, err).Required()
	gt.Bool(t, info.Size() > 0).True()

	// Nothing was created outside the directory
	entries, err := os.ReadDir(filepath.Dir(dir))
	gt.NoError(t, err).Required()
	gt.Array(t, entries).Length(1)
}

func TestMemoryStoreFactory(t *testing.T) {
	runStoreFactoryTest(t, memory.NewFactory())
}
