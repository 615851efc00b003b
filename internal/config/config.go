// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

// DefaultPath is the configuration file read when no --config flag is given.
const DefaultPath = "config.json"

// Store drivers.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Archive drivers.
const (
	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
	ArchiveMemory = "memory"
)

// Publisher drivers.
const (
	PublisherPubSub = "pubsub"
	PublisherMemory = "memory"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	MongoURL  string          `mapstructure:"mongo_url"`
	Debug     string          `mapstructure:"debug"`
	Store     StoreConfig     `mapstructure:"store"`
	Site      SiteConfig      `mapstructure:"site"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// File is the path Load was asked to read; FileFound reports whether it existed.
	File      string `mapstructure:"-"`
	FileFound bool   `mapstructure:"-"`
}

// StoreConfig selects and parameterizes the document store.
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	Table          string        `mapstructure:"table"`
}

// SiteConfig describes the crawled site.
type SiteConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ListingURL string `mapstructure:"listing_url"`
	Host       string `mapstructure:"host"`
	UserAgent  string `mapstructure:"user_agent"`
}

// ArtifactsConfig names the JSON hand-off files between stages.
type ArtifactsConfig struct {
	CategoryLinks string `mapstructure:"category_links"`
	DetailURLs    string `mapstructure:"detail_urls"`
}

// HTTPConfig controls fetch timing.
type HTTPConfig struct {
	LinksTimeout  time.Duration `mapstructure:"links_timeout"`
	DetailTimeout time.Duration `mapstructure:"detail_timeout"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	DetailRPS     float64       `mapstructure:"detail_rps"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// ScrapeConfig tunes detail extraction.
type ScrapeConfig struct {
	BoundSections bool `mapstructure:"bound_sections"`
}

// ArchiveConfig controls where raw detail pages are kept.
type ArchiveConfig struct {
	Driver    string `mapstructure:"driver"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for upsert notifications.
type PubSubConfig struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from the JSON file at path and DRUGINFO_* environment
// variables. A missing file is not an error: stages that need values from it
// fail later with a descriptive message.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DRUGINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("debug", "DEBUG", "DRUGINFO_DEBUG"); err != nil {
		return Config{}, fmt.Errorf("bind debug env: %w", err)
	}

	setDefaults(v)

	found := false
	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("json")
		}
		err := v.ReadInConfig()
		switch {
		case err == nil:
			found = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = path
	cfg.FileFound = found

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo_url", "")
	v.SetDefault("debug", "")
	v.SetDefault("store.driver", StoreMongo)
	v.SetDefault("store.database", "medlineplus")
	v.SetDefault("store.collection", "drug_details")
	v.SetDefault("store.connect_timeout", 30*time.Second)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.table", "drug_details")
	v.SetDefault("site.base_url", crawler.DefaultBaseURL)
	v.SetDefault("site.listing_url", crawler.DefaultListingURL)
	v.SetDefault("site.host", crawler.DefaultHost)
	v.SetDefault("site.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("artifacts.category_links", "drug_details.json")
	v.SetDefault("artifacts.detail_urls", "meds_links.json")
	v.SetDefault("http.links_timeout", crawler.DefaultLinkTimeout)
	v.SetDefault("http.detail_timeout", time.Duration(0))
	v.SetDefault("http.page_delay", crawler.DefaultPageDelay)
	v.SetDefault("http.detail_rps", 0.0)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("scrape.bound_sections", false)
	v.SetDefault("archive.driver", ArchiveNone)
	v.SetDefault("archive.base_dir", "archive")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("pubsub.driver", PublisherPubSub)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn must be set when store.driver is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("store.driver must be one of mongo, postgres, memory; got %q", c.Store.Driver)
	}
	switch c.Archive.Driver {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set when archive.driver is %q", ArchiveLocal)
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.driver is %q", ArchiveGCS)
		}
	default:
		return fmt.Errorf("archive.driver must be one of none, local, gcs, memory; got %q", c.Archive.Driver)
	}
	if c.HTTP.LinksTimeout < 0 || c.HTTP.DetailTimeout < 0 {
		return fmt.Errorf("http.links_timeout and http.detail_timeout must be >= 0")
	}
	if c.HTTP.PageDelay < 0 {
		return fmt.Errorf("http.page_delay must be >= 0")
	}
	if c.HTTP.DetailRPS < 0 {
		return fmt.Errorf("http.detail_rps must be >= 0")
	}
	switch c.PubSub.Driver {
	case PublisherMemory:
	case PublisherPubSub:
		if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
		}
	default:
		return fmt.Errorf("pubsub.driver must be one of pubsub, memory; got %q", c.PubSub.Driver)
	}
	if c.Artifacts.CategoryLinks == "" || c.Artifacts.DetailURLs == "" {
		return fmt.Errorf("artifacts.category_links and artifacts.detail_urls must be set")
	}
	return nil
}

// RequireMongoURL reports crawler.ErrMissingMongoURL when no usable mongo_url
// was configured.
func (c Config) RequireMongoURL() error {
	if strings.TrimSpace(c.MongoURL) != "" {
		return nil
	}
	if c.File != "" && !c.FileFound {
		return fmt.Errorf("config file %s not found: %w", c.File, crawler.ErrMissingMongoURL)
	}
	return crawler.ErrMissingMongoURL
}

// DebugEnabled reports whether the DEBUG value requests a collection wipe.
func (c Config) DebugEnabled() bool {
	return crawler.DebugEnabled(c.Debug)
}
