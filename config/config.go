package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chronicler service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Europeana EuropeanaConfig `mapstructure:"europeana"`
	Report    ReportConfig    `mapstructure:"report"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// EuropeanaConfig contains Europeana API client settings. The API key is
// injected here at construction time; no package-level key state exists.
type EuropeanaConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	SearchURL    string        `mapstructure:"search_url"`
	RecordURL    string        `mapstructure:"record_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ReportConfig contains report workflow defaults.
type ReportConfig struct {
	DefaultPageCount   int  `mapstructure:"default_page_count"`
	DefaultSourceCount int  `mapstructure:"default_source_count"`
	GraphicsCount      int  `mapstructure:"graphics_count"`
	ExtractContent     bool `mapstructure:"extract_content"`
	MaxPDFPages        int  `mapstructure:"max_pdf_pages"`
}

// Load reads configuration from chronicler.json (./config or .) and the
// CHRONICLER_* environment, applying defaults for anything unset.
func Load() (*Config, error) {
	viper.SetConfigName("chronicler")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CHRONICLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("europeana.api_key", "")
	viper.SetDefault("europeana.search_url", "https://api.europeana.eu/record/v2/search.json")
	viper.SetDefault("europeana.record_url", "https://api.europeana.eu/record/v2")
	viper.SetDefault("europeana.timeout", "15s")
	viper.SetDefault("europeana.max_retries", 3)
	viper.SetDefault("europeana.retry_backoff", "300ms")

	viper.SetDefault("report.default_page_count", 4)
	viper.SetDefault("report.default_source_count", 10)
	viper.SetDefault("report.graphics_count", 5)
	viper.SetDefault("report.extract_content", false)
	viper.SetDefault("report.max_pdf_pages", 10)
}
