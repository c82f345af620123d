package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/repository"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidPrice = errors.New("invalid price")

// Coordinator persists one extracted record with all of its dependent rows.
type Coordinator struct {
	resolver  *CategoryResolver
	images    client.ImageDownloader
	imagesDir string
	now       func() time.Time
}

func NewCoordinator(resolver *CategoryResolver, images client.ImageDownloader, imagesDir string) *Coordinator {
	if images == nil {
		images = client.NopImageDownloader{}
	}
	return &Coordinator{
		resolver:  resolver,
		images:    images,
		imagesDir: imagesDir,
		now:       time.Now,
	}
}

// Ingest writes the record inside its own savepoint of tx. On error the
// savepoint is rolled back, so a failed product leaves no rows behind.
func (c *Coordinator) Ingest(ctx context.Context, tx repository.Tx, rec *domain.Record, organization string) (*domain.Product, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open savepoint: %w", err)
	}

	product, err := c.ingest(ctx, sp, rec, organization)
	if err != nil {
		_ = sp.Rollback(ctx)
		return nil, fmt.Errorf("ingest %s: %w", rec.URL, err)
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ingest %s: failed to release savepoint: %w", rec.URL, err)
	}
	return product, nil
}

func (c *Coordinator) ingest(ctx context.Context, tx repository.Tx, rec *domain.Record, organization string) (*domain.Product, error) {
	price, err := parsePrice(rec.Price)
	if err != nil {
		return nil, err
	}

	categoryID, err := c.resolver.Resolve(ctx, tx, rec.Category)
	if err != nil {
		return nil, err
	}

	// a page without a title is still stored, with an empty one
	var title string
	if rec.Title != nil {
		title = *rec.Title
	}

	product := &domain.Product{
		Title:       title,
		URL:         rec.URL,
		CategoryID:  categoryID,
		Price:       price,
		Description: rec.Description,
	}

	if rec.ImageURL != nil && *rec.ImageURL != "" {
		image, err := c.saveImage(ctx, tx, *rec.ImageURL)
		if err != nil {
			return nil, err
		}
		product.ImageID = &image.ID
	}

	if organization != "" {
		org, _, err := getOrCreate(ctx, tx,
			func(t repository.Tx) (*domain.Organization, error) { return t.OrganizationByName(ctx, organization) },
			func(t repository.Tx) (*domain.Organization, error) { return t.InsertOrganization(ctx, organization) },
		)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization %q: %w", organization, err)
		}
		product.OrganizationID = &org.ID
	}

	id, err := tx.InsertProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	product.ID = id
	return product, nil
}

// saveImage downloads the image and records it. A failed download is only
// logged: the row keeps the URL and the path the file would have had.
func (c *Coordinator) saveImage(ctx context.Context, tx repository.Tx, imageURL string) (*domain.Image, error) {
	target := filepath.Join(c.imagesDir, ImageFileName(imageURL, c.now()))
	if err := c.images.Download(ctx, imageURL, target); err != nil {
		log.WithField("image", imageURL).Warnf("⚠️ Image download failed: %v", err)
	}

	image, err := tx.InsertImage(ctx, imageURL, target)
	if err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", err)
	}
	return image, nil
}

// ImageFileName builds "<basename>_<unix seconds>_<8 random digits>.jpeg" from
// the image URL with its query string dropped.
func ImageFileName(imageURL string, at time.Time) string {
	base := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		base = u.Path
	} else if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	base = path.Base(base)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s_%d_%08d.jpeg", base, at.Unix(), 10000000+rand.IntN(90000000))
}

func parsePrice(raw *string) (float64, error) {
	if raw == nil {
		return 0, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidPrice, s, err)
	}
	return price, nil
}
