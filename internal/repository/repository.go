package repository

import (
	"context"
	"errors"

	"producttrends/crawler/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("unique constraint conflict")
)

// Store opens transactions against the product database.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Tx is a transaction. Begin on a Tx opens a savepoint whose Rollback undoes only
// the work done since. Rollback after Commit is a no-op.
type Tx interface {
	Begin(ctx context.Context) (Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CategoryByName(ctx context.Context, name string) (*domain.Category, error)
	InsertCategory(ctx context.Context, name string, parentID *int64) (*domain.Category, error)
	OrganizationByName(ctx context.Context, name string) (*domain.Organization, error)
	InsertOrganization(ctx context.Context, name string) (*domain.Organization, error)
	InsertImage(ctx context.Context, url, path string) (*domain.Image, error)
	InsertProduct(ctx context.Context, product *domain.Product) (int64, error)
}
