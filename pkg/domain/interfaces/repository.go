package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNotFound is returned by repositories when the requested entry does not exist
	ErrNotFound = goerr.New("not found")

	// ErrStoreExists is returned by StoreFactory.Create when the store was already claimed
	ErrStoreExists = goerr.New("store already exists")

	// ErrStoreMissing is returned by StoreFactory.Open when no usable store is at the path
	ErrStoreMissing = goerr.New("store does not exist")
)

// Repository defines the interface for data persistence
type Repository interface {
	Risk() RiskRepository

	// MarkSeeded records that the seed set was loaded into this store
	MarkSeeded(ctx context.Context, version string, at time.Time) error

	// SeededAt returns when the seed set was loaded, or zero time when it never was
	SeededAt(ctx context.Context) (time.Time, error)

	Close() error
}

// StoreFactory opens the persistent store backing a Repository.
//
// A new store goes through Create, then Publish. Between the two the store is private to its
// creator: Open waits instead of handing out a store that is not yet seeded.
type StoreFactory interface {
	// Create claims the store at path with exclusive creation and returns an unpublished staging
	// store with its schema prepared. It fails with ErrStoreExists when the store was already claimed.
	Create(ctx context.Context, path string) (Repository, error)

	// Publish makes a staging store returned by Create available at path. The staging store is
	// released and must not be used afterwards.
	Publish(ctx context.Context, path string, staging Repository) error

	// Open opens the published store at path and brings its schema up to date. It waits while the
	// store is claimed but not yet published, and fails with ErrStoreMissing when there is no store
	// or the claim was released.
	Open(ctx context.Context, path string) (Repository, error)

	// Remove deletes the store at path together with an unpublished claim. Used to roll back a
	// failed bootstrap.
	Remove(path string) error
}
