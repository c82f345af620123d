package ingest

import (
	"context"
	"errors"
	"fmt"

	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/repository"

	log "github.com/sirupsen/logrus"
)

var ErrMissingCategory = errors.New("product has no category")

// Resolution tells whether get-or-create found a row or made one.
type Resolution int

const (
	Existing Resolution = iota
	Created
)

func (r Resolution) String() string {
	if r == Created {
		return "created"
	}
	return "existing"
}

// getOrCreate looks a row up and inserts it in a savepoint when missing. A
// conflicting concurrent insert rolls the savepoint back and the row is read again.
func getOrCreate[T any](
	ctx context.Context,
	tx repository.Tx,
	lookup func(repository.Tx) (*T, error),
	insert func(repository.Tx) (*T, error),
) (*T, Resolution, error) {
	found, err := lookup(tx)
	if err == nil {
		return found, Existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, Existing, err
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, Existing, fmt.Errorf("failed to open savepoint: %w", err)
	}
	created, err := insert(sp)
	if err == nil {
		if err := sp.Commit(ctx); err != nil {
			return nil, Existing, fmt.Errorf("failed to release savepoint: %w", err)
		}
		return created, Created, nil
	}
	_ = sp.Rollback(ctx)
	if !errors.Is(err, repository.ErrConflict) {
		return nil, Existing, err
	}

	found, err = lookup(tx)
	if err != nil {
		return nil, Existing, fmt.Errorf("failed to re-read after conflict: %w", err)
	}
	return found, Existing, nil
}

// CategoryResolver maps a category path onto the category tree. Names are
// unique across the whole tree, so a name already present is reused wherever
// it sits.
type CategoryResolver struct{}

func NewCategoryResolver() *CategoryResolver {
	return &CategoryResolver{}
}

// Resolve walks the path root first and returns the id of the leaf category.
func (r *CategoryResolver) Resolve(ctx context.Context, tx repository.Tx, path domain.CategoryPath) (int64, error) {
	if len(path) == 0 {
		return 0, ErrMissingCategory
	}

	var parentID *int64
	for _, name := range path {
		if name == "" {
			return 0, fmt.Errorf("%w: empty name in path %v", ErrMissingCategory, path)
		}
		category, res, err := getOrCreate(ctx, tx,
			func(t repository.Tx) (*domain.Category, error) { return t.CategoryByName(ctx, name) },
			func(t repository.Tx) (*domain.Category, error) { return t.InsertCategory(ctx, name, parentID) },
		)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve category %q: %w", name, err)
		}
		if res == Created {
			log.Debugf("📂 Created category %q (id %d)", name, category.ID)
		}
		id := category.ID
		parentID = &id
	}
	return *parentID, nil
}
