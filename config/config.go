package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Supabase  SupabaseConfig
	Directory DirectoryConfig
	Leads     LeadsConfig
	HTTP      HTTPConfig
	Export    ExportConfig
	S3        S3Config
	FluentBit FluentBitConfig
	Engine    EngineConfig
	LogLevel  string
	LogFile   string
	SiteID    string
	SitesDir  string
	Sites     map[string]*SiteConfig
}

type DatabaseConfig struct {
	URL string
}

// SupabaseConfig points at the secondary (franchise) feed. An empty URL
// disables enrichment rather than failing startup.
type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Table      string
}

// DirectoryConfig locates the team directory. A zero CacheTTL makes routing
// query SQLite per lead. ImportFile, when set, is re-imported by the running
// server on ImportCron (and once at startup).
type DirectoryConfig struct {
	DBPath     string
	CacheTTL   time.Duration
	ImportFile string
	ImportCron string
}

type LeadsConfig struct {
	RabbitMQURL   string
	Queue         string
	Exchange      string
	RoutingKey    string
	FallbackEmail string
}

type HTTPConfig struct {
	Port            string
	UpstreamTimeout time.Duration
}

type ExportConfig struct {
	Cron   string
	Prefix string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type FluentBitConfig struct {
	Enabled bool
	Host    string
	Port    int
	Tag     string
}

type EngineConfig struct {
	EnrichConcurrency int
	DefaultPageSize   int
	MaxPageSize       int
}

// SiteConfig carries the per-deployment scoping applied to every search.
type SiteConfig struct {
	ID                       string   `yaml:"id"`
	Name                     string   `yaml:"name"`
	ExcludedPropertyTypes    []string `yaml:"excluded_property_types"`
	ExcludedPropertySubTypes []string `yaml:"excluded_property_sub_types"`
	AllowedCities            []string `yaml:"allowed_cities"`
	AgentMLSIDs              []string `yaml:"agent_mls_ids"`
	AgentNames               []string `yaml:"agent_names"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Supabase: SupabaseConfig{
			URL:        os.Getenv("SUPABASE_URL"),
			ServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
			Table:      getEnv("SECONDARY_TABLE", "franchise_listings"),
		},
		Directory: DirectoryConfig{
			DBPath:     getEnv("DIRECTORY_DB_PATH", "directory.db"),
			CacheTTL:   getEnvDuration("DIRECTORY_CACHE_TTL", time.Minute),
			ImportFile: os.Getenv("DIRECTORY_IMPORT_FILE"),
			ImportCron: os.Getenv("DIRECTORY_IMPORT_CRON"),
		},
		Leads: LeadsConfig{
			RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
			Queue:         getEnv("LEADS_QUEUE", "leads.submitted"),
			Exchange:      getEnv("LEADS_EXCHANGE", "leads"),
			RoutingKey:    getEnv("LEADS_ROUTED_KEY", "lead.routed"),
			FallbackEmail: getEnv("LEAD_FALLBACK_EMAIL", "info@example.com"),
		},
		HTTP: HTTPConfig{
			Port:            getEnv("HTTP_PORT", "8080"),
			UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Export: ExportConfig{
			Cron:   os.Getenv("FEED_EXPORT_CRON"),
			Prefix: getEnv("FEED_EXPORT_PREFIX", "feeds"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		FluentBit: FluentBitConfig{
			Enabled: os.Getenv("FLUENTBIT_ENABLED") == "true",
			Host:    os.Getenv("FLUENTBIT_HOST"),
			Port:    getEnvInt("FLUENTBIT_PORT", 24224),
			Tag:     getEnv("FLUENTBIT_TAG", "listing_engine"),
		},
		Engine: EngineConfig{
			EnrichConcurrency: getEnvInt("ENRICH_CONCURRENCY", 8),
			DefaultPageSize:   getEnvInt("DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:       getEnvInt("MAX_PAGE_SIZE", 100),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "engine.log"),
		SiteID:   os.Getenv("SITE_ID"),
		SitesDir: getEnv("SITES_DIR", "config/sites"),
		Sites:    make(map[string]*SiteConfig),
	}

	if cfg.FluentBit.Enabled && cfg.FluentBit.Host == "" {
		cfg.FluentBit.Enabled = false
	}

	if err := cfg.loadSiteConfigs(); err != nil {
		return nil, fmt.Errorf("load site configs: %w", err)
	}

	return cfg, nil
}

// Site returns the active site scoping. A deployment without site files
// gets an empty (unscoped) site.
func (c *Config) Site() *SiteConfig {
	if site, ok := c.Sites[c.SiteID]; ok {
		return site
	}
	if c.SiteID == "" && len(c.Sites) == 1 {
		for _, site := range c.Sites {
			return site
		}
	}
	return &SiteConfig{ID: c.SiteID}
}

func (c *Config) loadSiteConfigs() error {
	entries, err := os.ReadDir(c.SitesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		site, err := LoadSiteFile(filepath.Join(c.SitesDir, entry.Name()))
		if err != nil {
			return err
		}

		c.Sites[site.ID] = site
	}

	return nil
}

func LoadSiteFile(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var site SiteConfig
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if site.ID == "" {
		site.ID = trimExt(filepath.Base(path))
	}
	return &site, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
