package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlerConfig holds run-level crawl and ingest settings
type CrawlerConfig struct {
	Mode                 string `mapstructure:"mode"`
	Site                 string `mapstructure:"site"`
	LinksFile            string `mapstructure:"links_file"`
	OutputFile           string `mapstructure:"output_file"`
	ImagesDir            string `mapstructure:"images_dir"`
	DownloadImages       bool   `mapstructure:"download_images"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxWorkers           int    `mapstructure:"max_workers"`
	QueueDepth           int    `mapstructure:"queue_depth"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	UserAgent            string `mapstructure:"user_agent"`
}

// DiscoveryConfig holds the convergence limits for listing discovery
type DiscoveryConfig struct {
	MaxPages      int     `mapstructure:"max_pages"`
	MaxScrolls    int     `mapstructure:"max_scrolls"`
	SettleMillis  int     `mapstructure:"settle_ms"`
	ScrollEpsilon float64 `mapstructure:"scroll_epsilon"`
	ScrollBack    float64 `mapstructure:"scroll_back"`
}

// BrowserConfig holds headless Chrome settings for the rendering loader
type BrowserConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	Headless       bool `mapstructure:"headless"`
	DisableGPU     bool `mapstructure:"disable_gpu"`
	NoSandbox      bool `mapstructure:"no_sandbox"`
	WaitMillis     int  `mapstructure:"wait_ms"`
	RenderProducts bool `mapstructure:"render_products"` // load product pages in the browser too
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

const (
	ModeDiscover = "discover"
	ModeIngest   = "ingest"
	ModeCrawl    = "crawl"
	ModeReplay   = "replay"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory" // nothing survives the process; useful for dry runs
)

func (c CrawlerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (d DiscoveryConfig) Settle() time.Duration {
	return time.Duration(d.SettleMillis) * time.Millisecond
}

func (b BrowserConfig) Wait() time.Duration {
	return time.Duration(b.WaitMillis) * time.Millisecond
}

// DSN builds a libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Flags returns the command line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("crawler", pflag.ContinueOnError)
	fs.String("config", "", "path to config.yaml (default ./config.yaml)")
	fs.String("mode", "", "run mode: discover, ingest, crawl or replay")
	fs.String("site", "", "path to the site configuration JSON")
	fs.String("links", "", "link list file (listing URLs for discover/crawl, product URLs for ingest)")
	fs.String("out", "", "output file for discovered product URLs")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	return fs
}

var flagKeys = map[string]string{
	"mode":      "crawler.mode",
	"site":      "crawler.site",
	"links":     "crawler.links_file",
	"out":       "crawler.output_file",
	"log-level": "logging.level",
}

// Load loads configuration from YAML file with environment variable and flag overrides
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	explicit := ""
	if flags != nil {
		explicit, _ = flags.GetString("config")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || explicit != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Crawler.Mode {
	case ModeDiscover, ModeIngest, ModeCrawl, ModeReplay:
	default:
		return fmt.Errorf("unknown mode %q", c.Crawler.Mode)
	}
	if c.Crawler.Site == "" {
		return fmt.Errorf("crawler.site is required")
	}
	if c.Crawler.Mode != ModeReplay && c.Crawler.LinksFile == "" {
		return fmt.Errorf("crawler.links_file is required for mode %s", c.Crawler.Mode)
	}
	if c.Crawler.Mode == ModeReplay && !c.Redis.Enabled {
		return fmt.Errorf("replay mode needs redis.enabled")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Crawler.MaxWorkers < 1 {
		c.Crawler.MaxWorkers = 1
	}
	if c.Crawler.QueueDepth < 1 {
		c.Crawler.QueueDepth = 1
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.mode", ModeCrawl)
	v.SetDefault("crawler.images_dir", "images")
	v.SetDefault("crawler.download_images", true)
	v.SetDefault("crawler.timeout", 30)
	v.SetDefault("crawler.max_retries", 0)
	v.SetDefault("crawler.max_workers", 4)
	v.SetDefault("crawler.queue_depth", 32)
	v.SetDefault("crawler.max_requests_per_second", 5)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	v.SetDefault("discovery.max_pages", 14)
	v.SetDefault("discovery.max_scrolls", 200)
	v.SetDefault("discovery.settle_ms", 2000)
	v.SetDefault("discovery.scroll_epsilon", 10)
	v.SetDefault("discovery.scroll_back", 500)

	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.wait_ms", 5000)
	v.SetDefault("browser.render_products", false)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "products")
	v.SetDefault("database.user", "products_user")
	v.SetDefault("database.password", "products_pass")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "crawler_replay")

	v.SetDefault("logging.level", "info")
}
