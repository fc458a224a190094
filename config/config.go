package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when no API key is configured. It is fatal.
var ErrMissingAPIKey = errors.New("tvdb.api_key must be set (or TVDB_API_KEY)")

var languagePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}$`)

// Load loads the configuration from file and environment. With an empty
// configPath a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("TVCATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("tvdb.api_key", "TVCATALOG_TVDB_API_KEY", "TVDB_API_KEY"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tvcatalog"))
		}

		// Check /etc
		v.AddConfigPath("/etc/tvcatalog/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultCachePath returns the directory the persistent cache lives in.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tvcatalog")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// TVDB defaults
	v.SetDefault("tvdb.username", "")
	v.SetDefault("tvdb.user_key", "")
	v.SetDefault("tvdb.language", "en")
	v.SetDefault("tvdb.banners", false)
	v.SetDefault("tvdb.actors", false)
	v.SetDefault("tvdb.dvd_order", false)
	v.SetDefault("tvdb.search_all_languages", false)
	v.SetDefault("tvdb.interactive", false)
	v.SetDefault("tvdb.select_first", false)
	v.SetDefault("tvdb.base_url", "https://api.thetvdb.com")
	v.SetDefault("tvdb.artwork_url", "http://thetvdb.com/banners/%s")
	v.SetDefault("tvdb.timeout", 15*time.Second)
	v.SetDefault("tvdb.max_pages", 100)
	v.SetDefault("tvdb.rate_limit", 10.0)
	v.SetDefault("tvdb.rate_burst", 5)

	// Cache defaults
	v.SetDefault("cache.backend", "bolt")
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("cache.expire", 6*time.Hour)
	v.SetDefault("cache.memory_ttl", 5*time.Minute)

	// Proxy defaults
	v.SetDefault("proxy.http", "")
	v.SetDefault("proxy.https", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.TVDB.APIKey) == "" || cfg.TVDB.APIKey == "your-api-key-here" {
		return ErrMissingAPIKey
	}

	if !languagePattern.MatchString(cfg.TVDB.Language) {
		return fmt.Errorf("invalid tvdb.language: %q", cfg.TVDB.Language)
	}

	if cfg.TVDB.MaxPages <= 0 {
		return fmt.Errorf("tvdb.max_pages must be greater than 0")
	}

	if cfg.TVDB.RateLimit < 0 {
		return fmt.Errorf("tvdb.rate_limit must not be negative")
	}

	// Validate cache backend
	validBackends := map[string]bool{
		"bolt":   true,
		"sqlite": true,
		"memory": true,
		"none":   true,
	}
	if !validBackends[cfg.Cache.Backend] {
		return fmt.Errorf("invalid cache.backend: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend != "none" && cfg.Cache.Expire <= 0 {
		return fmt.Errorf("cache.expire must be greater than 0")
	}

	for name, raw := range map[string]string{"proxy.http": cfg.Proxy.HTTP, "proxy.https": cfg.Proxy.HTTPS} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
