package service

import (
	"context"
	"errors"
	"time"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/discovery"
	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/domain/task"
	"producttrends/crawler/internal/ingest"
	"producttrends/crawler/internal/queue"
	"producttrends/crawler/internal/repository"
	"producttrends/crawler/internal/state"

	log "github.com/sirupsen/logrus"
)

// Failure stages recorded with failed URLs.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageIngest  = "ingest"
)

// Options tune the ingestion pipeline.
type Options struct {
	MaxWorkers   int
	QueueDepth   int
	MaxRetries   int
	RetryBackoff time.Duration
	URLTimeout   time.Duration // upper bound for loading and extracting one product page
	ReplayBlock  time.Duration // how long replay waits for more failed URLs
}

func (o Options) withDefaults() Options {
	if o.MaxWorkers < 1 {
		o.MaxWorkers = 1
	}
	if o.QueueDepth < 1 {
		o.QueueDepth = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ReplayBlock <= 0 {
		o.ReplayBlock = time.Second
	}
	return o
}

// LinkWriter receives the links found under each listing.
type LinkWriter interface {
	WriteBlock(listing string, links []string) error
}

type Service struct {
	site         *domain.SiteConfig
	siteName     string
	discoverer   discovery.Discoverer
	products     client.Loader
	store        repository.Store
	coordinator  *ingest.Coordinator
	queue        queue.Queue
	stateManager state.StateManager
	opts         Options
}

// NewService wires the pipeline. discoverer may be nil when only ingesting;
// failedQueue may be nil when failed URLs are not kept for replay.
func NewService(
	site *domain.SiteConfig,
	siteName string,
	discoverer discovery.Discoverer,
	products client.Loader,
	store repository.Store,
	coordinator *ingest.Coordinator,
	failedQueue queue.Queue,
	stateManager state.StateManager,
	opts Options,
) *Service {
	if stateManager == nil {
		stateManager = state.NopStateManager{}
	}
	return &Service{
		site:         site,
		siteName:     siteName,
		discoverer:   discoverer,
		products:     products,
		store:        store,
		coordinator:  coordinator,
		queue:        failedQueue,
		stateManager: stateManager,
		opts:         opts.withDefaults(),
	}
}

var ErrReplayUnavailable = errors.New("replay needs the redis failed-URL queue")

// recordFailure keeps a failed URL on the replay stream when one is configured.
func (s *Service) recordFailure(ctx context.Context, runID string, o domain.Outcome, stage string) {
	if s.queue == nil || o.Err == nil {
		return
	}
	_, err := s.queue.AddTask(ctx, &task.FailedURLTask{
		RunID:        runID,
		URL:          o.URL,
		Site:         s.siteName,
		Error:        o.Err.Error(),
		FailureStage: stage,
	})
	if err != nil {
		log.WithField("run", runID).Errorf("❌ Failed to queue %s for replay: %v", o.URL, err)
	}
}
