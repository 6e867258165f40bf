package memory

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
)

// markerPrefix starts the content of every marker file. The rest is the ID of the factory that
// wrote it.
const markerPrefix = "riskmatrix in-memory store "

// Factory keeps one in-memory store per path. A marker file is created at the path so that
// first-run detection by file presence behaves as with a file-backed store. Memory does not
// outlive the process, so a marker written by another factory is stale and gets reclaimed.
type Factory struct {
	id string

	mu      sync.Mutex
	stores  map[string]*Memory
	staging map[string]*Memory
	pending map[string]chan struct{}
}

var _ interfaces.StoreFactory = &Factory{}

func NewFactory() *Factory {
	return &Factory{
		id:      uuid.NewString(),
		stores:  make(map[string]*Memory),
		staging: make(map[string]*Memory),
		pending: make(map[string]chan struct{}),
	}
}

func (f *Factory) marker() []byte {
	return []byte(markerPrefix + f.id)
}

func (f *Factory) Create(ctx context.Context, path string) (interfaces.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.stores[path]; ok {
		return nil, goerr.Wrap(interfaces.ErrStoreExists, "store already claimed", goerr.V("path", path))
	}
	if _, ok := f.pending[path]; ok {
		return nil, goerr.Wrap(interfaces.ErrStoreExists, "store already claimed", goerr.V("path", path))
	}

	// #nosec G304 - path comes from settings
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	switch {
	case err == nil:
		_, werr := fd.Write(f.marker())
		if cerr := fd.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(path)
			return nil, goerr.Wrap(werr, "failed to write store marker", goerr.V("path", path))
		}

	case errors.Is(err, os.ErrExist):
		stale, rerr := isMarker(path)
		if rerr != nil {
			return nil, rerr
		}
		if !stale {
			return nil, goerr.Wrap(interfaces.ErrStoreExists, "path holds another store", goerr.V("path", path))
		}
		if err := os.WriteFile(path, f.marker(), 0o600); err != nil {
			return nil, goerr.Wrap(err, "failed to reclaim store marker", goerr.V("path", path))
		}

	default:
		return nil, goerr.Wrap(err, "failed to claim store", goerr.V("path", path))
	}

	repo := New()
	f.staging[path] = repo
	f.pending[path] = make(chan struct{})
	return repo, nil
}

func (f *Factory) Publish(ctx context.Context, path string, staging interfaces.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.staging[path]
	if !ok || interfaces.Repository(repo) != staging {
		return goerr.New("no staging store for path", goerr.V("path", path))
	}

	f.stores[path] = repo
	delete(f.staging, path)
	close(f.pending[path])
	delete(f.pending, path)
	return nil
}

func (f *Factory) Open(ctx context.Context, path string) (interfaces.Repository, error) {
	for {
		f.mu.Lock()
		if repo, ok := f.stores[path]; ok {
			f.mu.Unlock()
			return repo, nil
		}
		ch, waiting := f.pending[path]
		f.mu.Unlock()

		if !waiting {
			break
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "interrupted while waiting for store", goerr.V("path", path))
		}
	}

	stale, err := isMarker(path)
	if err != nil {
		return nil, err
	}
	if !stale {
		return nil, goerr.New("path does not hold an in-memory store", goerr.V("path", path))
	}
	return nil, goerr.Wrap(interfaces.ErrStoreMissing, "in-memory store did not survive its process", goerr.V("path", path))
}

// isMarker reports whether path holds a marker file not registered with this process. A missing
// file counts as a stale marker since there is nothing to protect.
func isMarker(path string) (bool, error) {
	// #nosec G304 - path comes from settings
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, goerr.Wrap(err, "failed to read store marker", goerr.V("path", path))
	}
	return bytes.HasPrefix(data, []byte(markerPrefix)), nil
}

// Put registers repo as the published store at path and creates the marker file, simulating a
// pre-existing store
func (f *Factory) Put(path string, repo *Memory) error {
	if err := os.WriteFile(path, f.marker(), 0o600); err != nil {
		return goerr.Wrap(err, "failed to write store marker", goerr.V("path", path))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.stores[path] = repo
	return nil
}

func (f *Factory) Remove(path string) error {
	f.mu.Lock()
	delete(f.stores, path)
	delete(f.staging, path)
	if ch, ok := f.pending[path]; ok {
		close(ch)
		delete(f.pending, path)
	}
	f.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove store", goerr.V("path", path))
	}
	return nil
}
