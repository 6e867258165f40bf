// Package sqlite provides the file-backed repository. The database file at the configured path is
// the durable signal that the store was initialized; it only ever holds a fully seeded database
// or, briefly, the empty claim of the instance that is creating it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
	"github.com/secmon-lab/riskmatrix/pkg/repository/sqlite/migrations"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	metaSeededAt    = "seeded_at"
	metaSeedVersion = "seed_version"

	stagingInfix = ".staging-"

	// DefaultPublishWait bounds how long Open waits for another instance to publish a claimed store
	DefaultPublishWait  = 30 * time.Second
	publishPollInterval = 50 * time.Millisecond
)

// SQLite is a store backed by one database file. A store returned by Create lives in a staging
// file next to the claimed path until it is published.
type SQLite struct {
	db   *sql.DB
	path string
	file string
	risk *riskRepository
}

var _ interfaces.Repository = &SQLite{}

// Create claims path with exclusive creation and prepares the schema in a staging file.
// Exactly one caller wins when several race on the same path; the others get
// interfaces.ErrStoreExists. The claimed path stays an empty file until Publish.
func Create(ctx context.Context, path string) (*SQLite, error) {
	cleanPath, err := cleanStorePath(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - path comes from settings
	fd, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, goerr.Wrap(interfaces.ErrStoreExists, "database file already exists", goerr.V("path", cleanPath))
		}
		return nil, goerr.Wrap(err, "failed to create database file", goerr.V("path", cleanPath))
	}
	if err := fd.Close(); err != nil {
		_ = os.Remove(cleanPath)
		return nil, goerr.Wrap(err, "failed to close database file", goerr.V("path", cleanPath))
	}

	staging := cleanPath + stagingInfix + uuid.NewString()
	store, err := open(ctx, staging)
	if err != nil {
		_ = removeFiles(staging)
		_ = os.Remove(cleanPath)
		return nil, err
	}
	store.path = cleanPath
	return store, nil
}

// Open opens the published database file at path and applies pending migrations. While the file
// is claimed but not yet published it waits up to wait.
func Open(ctx context.Context, path string, wait time.Duration) (*SQLite, error) {
	cleanPath, err := cleanStorePath(path)
	if err != nil {
		return nil, err
	}

	if err := waitPublished(ctx, cleanPath, wait); err != nil {
		return nil, err
	}

	return open(ctx, cleanPath)
}

// waitPublished returns once path holds a database. A published database is never empty because
// Publish checkpoints the staging file before moving it into place.
func waitPublished(ctx context.Context, path string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return goerr.Wrap(interfaces.ErrStoreMissing, "database file not found", goerr.V("path", path))
			}
			return goerr.Wrap(err, "failed to stat database file", goerr.V("path", path))
		}
		if info.Size() > 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return goerr.New("database is claimed but was not published",
				goerr.V("path", path), goerr.V("wait", wait.String()))
		}

		select {
		case <-ctx.Done():
			return goerr.Wrap(ctx.Err(), "interrupted while waiting for database", goerr.V("path", path))
		case <-time.After(publishPollInterval):
		}
	}
}

func cleanStorePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", goerr.New("database path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve database path", goerr.V("path", path))
	}
	return abs, nil
}

// dsn builds a file URI so that '?' and '#' in the path are not read as URI delimiters
func dsn(path string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
	}
	return u.String()
}

func open(ctx context.Context, file string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn(file))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", file))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping sqlite", goerr.V("path", file))
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to run migrations", goerr.V("path", file))
	}

	return &SQLite{
		db:   db,
		path: file,
		file: file,
		risk: newRiskRepository(db),
	}, nil
}

// publish moves the staging file over the claimed path. The empty claim file is replaced
// atomically, so readers see either nothing usable or the complete database.
func (s *SQLite) publish(ctx context.Context) error {
	if s.file == s.path {
		return goerr.New("store is already published", goerr.V("path", s.path))
	}
	if s.db == nil {
		return goerr.New("staging store is closed", goerr.V("path", s.path))
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return goerr.Wrap(err, "failed to checkpoint staging database", goerr.V("file", s.file))
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return goerr.Wrap(err, "failed to close staging database", goerr.V("file", s.file))
	}

	if err := os.Rename(s.file, s.path); err != nil {
		return goerr.Wrap(err, "failed to move staging database into place",
			goerr.V("file", s.file), goerr.V("path", s.path))
	}
	_ = removeFiles(s.file)
	s.file = s.path
	return nil
}

func (s *SQLite) Risk() interfaces.RiskRepository {
	return s.risk
}

func (s *SQLite) MarkSeeded(ctx context.Context, version string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const upsert = `INSERT INTO app_metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := tx.ExecContext(ctx, upsert, metaSeededAt, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return goerr.Wrap(err, "failed to record seed time")
	}
	if _, err := tx.ExecContext(ctx, upsert, metaSeedVersion, version); err != nil {
		return goerr.Wrap(err, "failed to record seed version")
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit seed metadata")
	}
	return nil
}

func (s *SQLite) SeededAt(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_metadata WHERE key = ?`, metaSeededAt).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to read seed time")
	}

	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid seed time", goerr.V("value", value))
	}
	return at, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Factory opens SQLite stores for the bootstrapper
type Factory struct {
	// PublishWait bounds how long Open waits for a claimed store. Zero means DefaultPublishWait.
	PublishWait time.Duration
}

var _ interfaces.StoreFactory = Factory{}

func (x Factory) Create(ctx context.Context, path string) (interfaces.Repository, error) {
	store, err := Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (x Factory) Publish(ctx context.Context, path string, staging interfaces.Repository) error {
	store, ok := staging.(*SQLite)
	if !ok {
		return goerr.New("staging store is not a sqlite store", goerr.V("path", path))
	}
	cleanPath, err := cleanStorePath(path)
	if err != nil {
		return err
	}
	if store.path != cleanPath {
		return goerr.New("staging store was created for another path",
			goerr.V("path", cleanPath), goerr.V("claimed", store.path))
	}
	return store.publish(ctx)
}

func (x Factory) Open(ctx context.Context, path string) (interfaces.Repository, error) {
	wait := x.PublishWait
	if wait <= 0 {
		wait = DefaultPublishWait
	}
	store, err := Open(ctx, path, wait)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Remove deletes the database file, its WAL side files and any staging file left by a claim
func (x Factory) Remove(path string) error {
	cleanPath, err := cleanStorePath(path)
	if err != nil {
		return err
	}

	if err := removeFiles(cleanPath); err != nil {
		return err
	}

	dir, base := filepath.Split(cleanPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to list database directory", goerr.V("dir", dir))
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base+stagingInfix) || strings.HasSuffix(name, "-wal") || strings.HasSuffix(name, "-shm") {
			continue
		}
		if err := removeFiles(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func removeFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return goerr.Wrap(err, "failed to remove database file", goerr.V("path", p))
		}
	}
	return nil
}
