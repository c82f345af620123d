package container

import (
	"context"
	"fmt"
	"time"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/config"
	"producttrends/crawler/internal/discovery"
	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/ingest"
	"producttrends/crawler/internal/linkfile"
	"producttrends/crawler/internal/queue"
	"producttrends/crawler/internal/repository"
	"producttrends/crawler/internal/service"
	"producttrends/crawler/internal/state"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config  *config.Config
	Site    *domain.SiteConfig
	RunID   string
	Service *service.Service

	store   repository.Store
	browser *client.BrowserLoader
	redis   *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
		RunID:  uuid.NewString(),
	}

	site, err := config.LoadSite(cfg.Crawler.Site)
	if err != nil {
		return nil, err
	}
	c.Site = site

	if err := c.initStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	var (
		failedQueue  queue.Queue
		stateManager state.StateManager = state.NopStateManager{}
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		c.redis = rdb

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
		if err != nil {
			c.Close()
			return nil, err
		}
		failedQueue = redisQueue
		stateManager = state.NewRedisStateManager(rdb)
	}

	static := client.NewStaticLoader(cfg.Crawler)
	var browser client.Loader
	if cfg.Browser.Enabled && c.needsBrowser() {
		b, err := client.NewBrowserLoader(ctx, cfg.Crawler, cfg.Browser)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		c.browser = b
		browser = b
	}

	var discoverer discovery.Discoverer
	if cfg.Crawler.Mode == config.ModeDiscover || cfg.Crawler.Mode == config.ModeCrawl {
		discoverer, err = discovery.New(site.Discovery, cfg.Discovery, static, browser)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidSiteConfig, err)
		}
	}

	products := static
	if browser != nil && cfg.Browser.RenderProducts {
		products = browser
	}

	var images client.ImageDownloader = client.NopImageDownloader{}
	if cfg.Crawler.DownloadImages {
		images = client.NewImageDownloader(cfg.Crawler)
	}
	coordinator := ingest.NewCoordinator(ingest.NewCategoryResolver(), images, cfg.Crawler.ImagesDir)

	c.Service = service.NewService(
		site,
		cfg.Crawler.Site,
		discoverer,
		products,
		c.store,
		coordinator,
		failedQueue,
		stateManager,
		service.Options{
			MaxWorkers:   cfg.Crawler.MaxWorkers,
			QueueDepth:   cfg.Crawler.QueueDepth,
			MaxRetries:   cfg.Crawler.MaxRetries,
			RetryBackoff: time.Second,
			URLTimeout:   2*cfg.Crawler.RequestTimeout() + cfg.Browser.Wait(),
		},
	)

	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Database.Driver {
	case config.DriverMemory:
		log.Warn("⚠️ Using the in-memory store, nothing will be persisted")
		c.store = repository.NewMemoryStore()
		return nil
	default:
		store, err := repository.NewPostgresStore(ctx, c.Config.Database)
		if err != nil {
			return err
		}
		c.store = store
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info("✅ Connected to Postgres successfully")
		return nil
	}
}

// needsBrowser reports whether this run loads anything through Chrome.
func (c *Container) needsBrowser() bool {
	if c.Config.Browser.RenderProducts {
		return true
	}
	switch c.Config.Crawler.Mode {
	case config.ModeDiscover, config.ModeCrawl:
		return c.Site.Discovery.Mode != domain.DiscoveryNextLink
	}
	return false
}

// Run executes the configured mode and returns the run summary.
func (c *Container) Run(ctx context.Context) (domain.Summary, error) {
	cfg := c.Config.Crawler
	logger := log.WithField("run", c.RunID)
	logger.Infof("🚀 Starting %s run for %s (%s)", cfg.Mode, c.Site.OrganizationName, cfg.Site)

	switch cfg.Mode {
	case config.ModeReplay:
		return c.Service.Replay(ctx, c.RunID)

	case config.ModeIngest:
		urls, err := linkfile.Read(cfg.LinksFile)
		if err != nil {
			return domain.Summary{}, err
		}
		return c.Service.Ingest(ctx, c.RunID, urls)

	default:
		listings, err := linkfile.Read(cfg.LinksFile)
		if err != nil {
			return domain.Summary{}, err
		}

		outPath := cfg.OutputFile
		if outPath == "" {
			outPath = linkfile.DefaultOutputName(c.Site.OrganizationName, time.Now())
		}
		out, err := linkfile.Open(outPath)
		if err != nil {
			return domain.Summary{}, err
		}
		defer out.Close()
		logger.Infof("📝 Writing discovered links to %s", outPath)

		links, err := c.Service.Discover(ctx, c.RunID, cfg.LinksFile, listings, out)
		if err != nil {
			return domain.Summary{}, err
		}
		if cfg.Mode == config.ModeDiscover {
			return domain.Summary{Discovered: links.Len()}, nil
		}
		return c.Service.Ingest(ctx, c.RunID, links.Links())
	}
}

// Close performs cleanup when shutting down
func (c *Container) Close() {
	log.Info("Shutting down container...")

	if c.browser != nil {
		c.browser.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
}
