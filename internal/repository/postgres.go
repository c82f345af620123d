package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"producttrends/crawler/internal/config"
	"producttrends/crawler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	return NewPostgresStoreFromDSN(ctx, cfg.DSN(), cfg.MaxConns)
}

func NewPostgresStoreFromDSN(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Begin(ctx context.Context) (Tx, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open savepoint: %w", err)
	}
	return &pgTx{tx: sp}, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *pgTx) CategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, parent_id FROM categories WHERE name = $1`, name).
		Scan(&c.ID, &c.Name, &c.ParentID)
	if err != nil {
		return nil, mapError(err, "category "+name)
	}
	return &c, nil
}

func (t *pgTx) InsertCategory(ctx context.Context, name string, parentID *int64) (*domain.Category, error) {
	c := domain.Category{Name: name, ParentID: parentID}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO categories (name, parent_id) VALUES ($1, $2) RETURNING id`, name, parentID).
		Scan(&c.ID)
	if err != nil {
		return nil, mapError(err, "category "+name)
	}
	return &c, nil
}

func (t *pgTx) OrganizationByName(ctx context.Context, name string) (*domain.Organization, error) {
	var o domain.Organization
	err := t.tx.QueryRow(ctx,
		`SELECT id, name FROM organizations WHERE name = $1`, name).
		Scan(&o.ID, &o.Name)
	if err != nil {
		return nil, mapError(err, "organization "+name)
	}
	return &o, nil
}

func (t *pgTx) InsertOrganization(ctx context.Context, name string) (*domain.Organization, error) {
	o := domain.Organization{Name: name}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO organizations (name) VALUES ($1) RETURNING id`, name).
		Scan(&o.ID)
	if err != nil {
		return nil, mapError(err, "organization "+name)
	}
	return &o, nil
}

func (t *pgTx) InsertImage(ctx context.Context, url, path string) (*domain.Image, error) {
	img := domain.Image{URL: url, Path: path}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO images (url, path) VALUES ($1, $2) RETURNING id`, url, path).
		Scan(&img.ID)
	if err != nil {
		return nil, mapError(err, "image "+url)
	}
	return &img, nil
}

func (t *pgTx) InsertProduct(ctx context.Context, p *domain.Product) (int64, error) {
	query := `
	INSERT INTO products (title, url, category_id, price, description, image_id, organization_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		p.Title, p.URL, p.CategoryID, p.Price, p.Description, p.ImageID, p.OrganizationID).
		Scan(&id)
	if err != nil {
		return 0, mapError(err, "product "+p.URL)
	}
	return id, nil
}

func mapError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
