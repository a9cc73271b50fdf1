// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tracklift/internal/logging"
)

// Duration wraps time.Duration so YAML configs can say "45s" or "1m".
// Bare integers are treated as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		seconds, err := strconv.Atoi(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q", value.Value)
		}
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level application configuration.
type Config struct {
	Logging logging.Config `yaml:"logging" json:"logging"`
	Server  ServerConfig   `yaml:"server" json:"server"`
	Scraper ScraperConfig  `yaml:"scraper" json:"scraper"`
	Cache   CacheConfig    `yaml:"cache" json:"cache"`
	Catalog CatalogConfig  `yaml:"catalog" json:"catalog"`
}

// ServerConfig configures the HTTP API facade.
type ServerConfig struct {
	ListenAddress string   `yaml:"listen_address" json:"listen_address"`
	ReadTimeout   Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout" json:"write_timeout"`
}

// ScraperConfig configures the orchestrator and strategy backends.
type ScraperConfig struct {
	AllowedHosts    []string      `yaml:"allowed_hosts" json:"allowed_hosts"`
	HeadlessEnabled bool          `yaml:"headless_enabled" json:"headless_enabled"`
	UserAgents      []string      `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	MaxConcurrency  int           `yaml:"max_concurrency" json:"max_concurrency"`
	MinInterval     Duration      `yaml:"min_interval" json:"min_interval"`
	LinkProbeLimit  int           `yaml:"link_probe_limit" json:"link_probe_limit"`
}

// CacheConfig configures the two cache tiers. When RedisAddr is set the
// persistent tier uses Redis; otherwise SQLitePath, when set, selects a
// disk-backed tier. With neither, only the memory tier runs.
type CacheConfig struct {
	MaxEntries    int      `yaml:"max_entries" json:"max_entries"`
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`
	RedisAddr     string   `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisPassword string   `yaml:"redis_password,omitempty" json:"redis_password,omitempty"`
	RedisDB       int      `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
	SQLitePath    string   `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
}

// CatalogConfig configures the catalog-scrape metadata provider.
type CatalogConfig struct {
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	SearchPath  string   `yaml:"search_path" json:"search_path"`
	Deadline    Duration `yaml:"deadline" json:"deadline"`
	FallbackURL string   `yaml:"fallback_url" json:"fallback_url"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvironmentVariables substitutes ${VAR} references with values from
// the process environment. Unset variables expand to the empty string.
func expandEnvironmentVariables(data string) string {
	return envPattern.ReplaceAllStringFunc(data, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// Load reads configuration from a YAML file, after loading a .env file if
// one is present in the working directory.
func Load(filename string) (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	if filename == "" {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML configuration with environment expansion.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = Duration(60 * time.Second)
	}
	if cfg.Scraper.MaxConcurrency <= 0 {
		cfg.Scraper.MaxConcurrency = 4
	}
	if cfg.Scraper.MinInterval <= 0 {
		cfg.Scraper.MinInterval = Duration(time.Second)
	}
	if cfg.Scraper.LinkProbeLimit <= 0 {
		cfg.Scraper.LinkProbeLimit = 10
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Cache.SweepInterval <= 0 {
		cfg.Cache.SweepInterval = Duration(time.Minute)
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "https://www.beatport.com"
	}
	if cfg.Catalog.SearchPath == "" {
		cfg.Catalog.SearchPath = "/search?q="
	}
	if cfg.Catalog.Deadline <= 0 {
		cfg.Catalog.Deadline = Duration(45 * time.Second)
	}
	if cfg.Catalog.FallbackURL == "" {
		cfg.Catalog.FallbackURL = "https://itunes.apple.com/search"
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Scraper.MaxConcurrency < 1 {
		return fmt.Errorf("scraper.max_concurrency must be at least 1")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
