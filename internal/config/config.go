// Package config loads scout configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Cascade    CascadeConfig    `yaml:"cascade" mapstructure:"cascade"`
	Crossref   CrossrefConfig   `yaml:"crossref" mapstructure:"crossref"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SearchConfig holds keyed search API credentials and the scrape toggle.
type SearchConfig struct {
	GoogleKey    string `yaml:"google_api_key" mapstructure:"google_api_key"`
	GoogleCX     string `yaml:"google_cx" mapstructure:"google_cx"`
	ScrapeEnable bool   `yaml:"scrape_enable" mapstructure:"scrape_enable"`
}

// PerplexityConfig holds Perplexity API settings for grounded search.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for extraction.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	Model        string `yaml:"model" mapstructure:"model"`
	CleanupModel string `yaml:"cleanup_model" mapstructure:"cleanup_model"`
}

// FetchConfig configures polite page fetching.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MinDelayMS  int `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	CrawlLimit  int `yaml:"crawl_limit" mapstructure:"crawl_limit"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CascadeConfig points at the optional strategy threshold file.
type CascadeConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// CrossrefConfig configures the publication enrichment pass.
type CrossrefConfig struct {
	Enable bool   `yaml:"enable" mapstructure:"enable"`
	Mailto string `yaml:"mailto" mapstructure:"mailto"`
}

// AuditConfig configures the run audit trail.
type AuditConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres", or "off"
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("search.scrape_enable", true)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.cleanup_model", "claude-haiku-4-5-20251001")
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.min_delay_ms", 1500)
	v.SetDefault("fetch.max_delay_ms", 3500)
	v.SetDefault("fetch.crawl_limit", 25)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("crossref.enable", false)
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.sqlite_path", "scout-audit.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode ("discover",
// "crawl", or "serve"). It collects every problem instead of stopping at
// the first one.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "discover", "crawl", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var problems []string

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 16 {
		problems = append(problems, "fetch.concurrency must be between 1 and 16")
	}
	if c.Fetch.MinDelayMS < 0 || c.Fetch.MaxDelayMS < c.Fetch.MinDelayMS {
		problems = append(problems, "fetch.max_delay_ms must be >= fetch.min_delay_ms")
	}
	if c.Fetch.CrawlLimit < 1 {
		problems = append(problems, "fetch.crawl_limit must be > 0")
	}
	switch c.Audit.Driver {
	case "sqlite", "postgres", "off":
	default:
		problems = append(problems, "audit.driver must be sqlite, postgres, or off")
	}
	if c.Audit.Driver == "postgres" && c.Audit.DatabaseURL == "" {
		problems = append(problems, "audit.database_url is required for the postgres driver")
	}

	if len(problems) > 0 {
		return eris.New("config: invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
