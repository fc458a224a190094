package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	TVDB    TVDBConfig    `mapstructure:"tvdb"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TVDBConfig holds the catalog API credentials and lookup behavior
type TVDBConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	Username           string        `mapstructure:"username"`
	UserKey            string        `mapstructure:"user_key"`
	Language           string        `mapstructure:"language"`
	Banners            bool          `mapstructure:"banners"`
	Actors             bool          `mapstructure:"actors"`
	DVDOrder           bool          `mapstructure:"dvd_order"`
	SearchAllLanguages bool          `mapstructure:"search_all_languages"`
	Interactive        bool          `mapstructure:"interactive"`
	SelectFirst        bool          `mapstructure:"select_first"`
	BaseURL            string        `mapstructure:"base_url"`
	ArtworkURL         string        `mapstructure:"artwork_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxPages           int           `mapstructure:"max_pages"`
	RateLimit          float64       `mapstructure:"rate_limit"`
	RateBurst          int           `mapstructure:"rate_burst"`
}

// CacheConfig selects the response cache backend
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	Path      string        `mapstructure:"path"`
	Expire    time.Duration `mapstructure:"expire"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl"`
}

// ProxyConfig holds per-scheme proxy URLs
type ProxyConfig struct {
	HTTP  string `mapstructure:"http"`
	HTTPS string `mapstructure:"https"`
}

// FilterConfig contains named episode filter expressions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
