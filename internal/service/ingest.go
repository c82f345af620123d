package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/extractor"
	"producttrends/crawler/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// fetched is what a worker hands to the ingestion consumer.
type fetched struct {
	url    string
	record *domain.Record
	stage  string
	err    error
}

// Ingest loads, extracts and stores every URL. Pages are fetched by a pool of
// workers; a single consumer owns the run transaction, stores each product in
// its own savepoint and commits once at the end. Per-URL failures are counted
// and never stop the run.
func (s *Service) Ingest(ctx context.Context, runID string, urls []string) (domain.Summary, error) {
	logger := log.WithField("run", runID)
	summary := domain.Summary{Discovered: len(urls)}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	jobs := make(chan string)
	results := make(chan fetched, s.opts.QueueDepth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for workerID := 1; workerID <= s.opts.MaxWorkers; workerID++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			logger.Debugf("🚀 Starting fetch worker %d", workerID)
			for u := range jobs {
				r := s.fetch(gctx, runID, u)
				select {
				case results <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	g.Go(func() error {
		for r := range results {
			o := s.consume(gctx, tx, r)
			summary.Add(o)
			switch o.Status {
			case domain.OutcomeIngested:
				logger.WithField("url", o.URL).Infof("✅ Stored product %d", o.ProductID)
			case domain.OutcomeSkipped:
				logger.WithField("url", o.URL).Infof("⏭️ Skipped: %v", o.Err)
			case domain.OutcomeFailed:
				logger.WithField("url", o.URL).Errorf("❌ %s failed: %v", r.stage, o.Err)
				s.recordFailure(gctx, runID, o, r.stage)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("ingestion interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("ingestion interrupted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return summary, fmt.Errorf("failed to commit run transaction: %w", err)
	}
	logger.Infof("🎉 Run committed: %s", summary)
	return summary, nil
}

func (s *Service) consume(ctx context.Context, tx repository.Tx, r fetched) domain.Outcome {
	o := domain.Outcome{URL: r.url}
	if r.err != nil {
		o.Err = r.err
		o.Status = domain.OutcomeFailed
		if errors.Is(r.err, extractor.ErrMissingIdentifier) {
			o.Status = domain.OutcomeSkipped
		}
		return o
	}

	product, err := s.coordinator.Ingest(ctx, tx, r.record, s.site.OrganizationName)
	if err != nil {
		o.Err = err
		o.Status = domain.OutcomeFailed
		return o
	}
	o.Status = domain.OutcomeIngested
	o.ProductID = product.ID
	return o
}

// fetch loads and extracts one product page, retrying transient fetch errors.
func (s *Service) fetch(ctx context.Context, runID, url string) fetched {
	var (
		rec   *domain.Record
		stage string
		err   error
	)
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			log.WithField("run", runID).Warnf("🔄 Retrying %s (attempt %d): %v", url, attempt+1, err)
			if werr := wait(ctx, time.Duration(attempt)*s.opts.RetryBackoff); werr != nil {
				break
			}
		}
		rec, stage, err = s.fetchOnce(ctx, url)
		if err == nil || !errors.Is(err, client.ErrFetch) {
			break
		}
	}
	if err != nil && stage == "" {
		stage = StageFetch
	}
	if err == nil {
		stage = StageIngest
	}
	return fetched{url: url, record: rec, stage: stage, err: err}
}

func (s *Service) fetchOnce(ctx context.Context, url string) (*domain.Record, string, error) {
	if s.opts.URLTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.URLTimeout)
		defer cancel()
	}

	page, err := s.products.Load(ctx, url)
	if err != nil {
		return nil, StageFetch, err
	}
	defer page.Close()

	doc, err := page.Document(ctx)
	if err != nil {
		return nil, StageFetch, err
	}
	rec, err := extractor.Extract(doc, s.site.Elements, url)
	if err != nil {
		return nil, StageExtract, err
	}
	return rec, StageIngest, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
