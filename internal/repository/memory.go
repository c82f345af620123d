package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"producttrends/crawler/internal/domain"
)

// MemoryStore keeps everything in process. It backs dry runs and tests and
// enforces the same unique and foreign key rules as the Postgres schema.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	categories    []domain.Category
	organizations []domain.Organization
	images        []domain.Image
	products      []domain.Product
	lastID        int64
}

func (s *memState) clone() *memState {
	c := &memState{lastID: s.lastID}
	c.categories = append([]domain.Category(nil), s.categories...)
	c.organizations = append([]domain.Organization(nil), s.organizations...)
	c.images = append([]domain.Image(nil), s.images...)
	c.products = append([]domain.Product(nil), s.products...)
	return c
}

func (s *memState) nextID() int64 {
	s.lastID++
	return s.lastID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{}}
}

func (s *MemoryStore) EnsureSchema(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Begin(context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{store: s, state: s.state.clone()}, nil
}

func (s *MemoryStore) Categories() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Category(nil), s.state.categories...)
}

func (s *MemoryStore) Organizations() []domain.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Organization(nil), s.state.organizations...)
}

func (s *MemoryStore) Images() []domain.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Image(nil), s.state.images...)
}

func (s *MemoryStore) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product(nil), s.state.products...)
}

var errTxDone = errors.New("transaction already closed")

// memTx works on a private copy of its parent's state and publishes it on Commit.
type memTx struct {
	store  *MemoryStore
	parent *memTx
	state  *memState
	done   bool
}

func (t *memTx) Begin(context.Context) (Tx, error) {
	if t.done {
		return nil, errTxDone
	}
	return &memTx{store: t.store, parent: t, state: t.state.clone()}, nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if t.parent != nil {
		if t.parent.done {
			return errTxDone
		}
		t.parent.state = t.state
		return nil
	}
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.done = true
	return nil
}

func (t *memTx) check() error {
	if t.done {
		return errTxDone
	}
	return nil
}

func (t *memTx) CategoryByName(_ context.Context, name string) (*domain.Category, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	for _, c := range t.state.categories {
		if c.Name == name {
			c := c
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", name, ErrNotFound)
}

func (t *memTx) InsertCategory(ctx context.Context, name string, parentID *int64) (*domain.Category, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if _, err := t.CategoryByName(ctx, name); err == nil {
		return nil, fmt.Errorf("category %s: %w", name, ErrConflict)
	}
	if parentID != nil && !t.hasCategory(*parentID) {
		return nil, fmt.Errorf("category %s: parent %d does not exist", name, *parentID)
	}
	c := domain.Category{ID: t.state.nextID(), Name: name, ParentID: parentID}
	t.state.categories = append(t.state.categories, c)
	return &c, nil
}

func (t *memTx) hasCategory(id int64) bool {
	for _, c := range t.state.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (t *memTx) OrganizationByName(_ context.Context, name string) (*domain.Organization, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	for _, o := range t.state.organizations {
		if o.Name == name {
			o := o
			return &o, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", name, ErrNotFound)
}

func (t *memTx) InsertOrganization(ctx context.Context, name string) (*domain.Organization, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if _, err := t.OrganizationByName(ctx, name); err == nil {
		return nil, fmt.Errorf("organization %s: %w", name, ErrConflict)
	}
	o := domain.Organization{ID: t.state.nextID(), Name: name}
	t.state.organizations = append(t.state.organizations, o)
	return &o, nil
}

func (t *memTx) InsertImage(_ context.Context, url, path string) (*domain.Image, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	img := domain.Image{ID: t.state.nextID(), URL: url, Path: path}
	t.state.images = append(t.state.images, img)
	return &img, nil
}

func (t *memTx) InsertProduct(_ context.Context, p *domain.Product) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	if !t.hasCategory(p.CategoryID) {
		return 0, fmt.Errorf("product %s: category %d does not exist", p.URL, p.CategoryID)
	}
	if p.ImageID != nil && !t.hasImage(*p.ImageID) {
		return 0, fmt.Errorf("product %s: image %d does not exist", p.URL, *p.ImageID)
	}
	if p.OrganizationID != nil && !t.hasOrganization(*p.OrganizationID) {
		return 0, fmt.Errorf("product %s: organization %d does not exist", p.URL, *p.OrganizationID)
	}
	row := *p
	row.ID = t.state.nextID()
	t.state.products = append(t.state.products, row)
	return row.ID, nil
}

func (t *memTx) hasImage(id int64) bool {
	for _, img := range t.state.images {
		if img.ID == id {
			return true
		}
	}
	return false
}

func (t *memTx) hasOrganization(id int64) bool {
	for _, o := range t.state.organizations {
		if o.ID == id {
			return true
		}
	}
	return false
}
