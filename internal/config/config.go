// Package config loads the dealwatch configuration from an optional YAML
// file with environment overrides, and owns global logger setup.
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
	Webhooks WebhooksConfig `yaml:"webhooks" mapstructure:"webhooks"`
	Roles    RolesConfig    `yaml:"roles" mapstructure:"roles"`
	APIs     APIConfig      `yaml:"apis" mapstructure:"apis"`
	Regions  RegionConfig   `yaml:"regions" mapstructure:"regions"`
	Deals    DealsConfig    `yaml:"deals" mapstructure:"deals"`
	Suspect  SuspectConfig  `yaml:"suspect" mapstructure:"suspect"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// WebhooksConfig maps dispatch channels to endpoint URLs. An empty URL
// disables that channel.
type WebhooksConfig struct {
	Premium     string `yaml:"premium" mapstructure:"premium"`
	Low         string `yaml:"low" mapstructure:"low"`
	FreeWeekend string `yaml:"free_weekend" mapstructure:"free_weekend"`
	Discount    string `yaml:"discount" mapstructure:"discount"`
	All         string `yaml:"all" mapstructure:"all"`
	Status      string `yaml:"status" mapstructure:"status"`
	PlayStation string `yaml:"playstation" mapstructure:"playstation"`
	Xbox        string `yaml:"xbox" mapstructure:"xbox"`
	Nintendo    string `yaml:"nintendo" mapstructure:"nintendo"`
	VR          string `yaml:"vr" mapstructure:"vr"`
	PCDeals     string `yaml:"pc_deals" mapstructure:"pc_deals"`
}

// RolesConfig holds optional mention tokens appended to messages per channel.
type RolesConfig struct {
	Premium     string `yaml:"premium" mapstructure:"premium"`
	Low         string `yaml:"low" mapstructure:"low"`
	FreeWeekend string `yaml:"free_weekend" mapstructure:"free_weekend"`
	Discount    string `yaml:"discount" mapstructure:"discount"`
	All         string `yaml:"all" mapstructure:"all"`
	PlayStation string `yaml:"playstation" mapstructure:"playstation"`
	Xbox        string `yaml:"xbox" mapstructure:"xbox"`
	Nintendo    string `yaml:"nintendo" mapstructure:"nintendo"`
	VR          string `yaml:"vr" mapstructure:"vr"`
	PCDeals     string `yaml:"pc_deals" mapstructure:"pc_deals"`
}

// APIConfig holds credentials for sources that require them. A missing key
// silently disables that source.
type APIConfig struct {
	GGDealsKey    string `yaml:"ggdeals_key" mapstructure:"ggdeals_key"`
	PlatPricesKey string `yaml:"platprices_key" mapstructure:"platprices_key"`
	ReviewDBKey   string `yaml:"review_db_key" mapstructure:"review_db_key"`
}

// RegionConfig holds per-store region/locale parameters forwarded to adapters.
type RegionConfig struct {
	PlayStation string `yaml:"playstation" mapstructure:"playstation"`
	XboxMarket  string `yaml:"xbox_market" mapstructure:"xbox_market"`
	Nintendo    string `yaml:"nintendo" mapstructure:"nintendo"`
}

// DealsConfig bounds the "discount" dispatch partition.
type DealsConfig struct {
	MinDiscount int     `yaml:"min_discount" mapstructure:"min_discount"`
	MaxDiscount int     `yaml:"max_discount" mapstructure:"max_discount"`
	MinScore    float64 `yaml:"min_score" mapstructure:"min_score"`
	MaxPrice    float64 `yaml:"max_price" mapstructure:"max_price"`
}

// SuspectConfig configures the suspicion validator.
type SuspectConfig struct {
	TrustThreshold float64 `yaml:"trust_threshold" mapstructure:"trust_threshold"`
}

// CacheConfig configures the published-deal cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxAgeDays  int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// SourcesConfig configures adapter behavior shared across sources.
type SourcesConfig struct {
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxConcurrent    int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TrustTablePath   string `yaml:"trust_table_path" mapstructure:"trust_table_path"`
}

// EnrichConfig configures the review enricher.
type EnrichConfig struct {
	LookupSpacingMillis int `yaml:"lookup_spacing_millis" mapstructure:"lookup_spacing_millis"`
	TimeoutSecs         int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FeaturesConfig holds feature toggles.
type FeaturesConfig struct {
	EnableAIValidation    bool `yaml:"enable_ai_validation" mapstructure:"enable_ai_validation"`
	EnableParallelFetch   bool `yaml:"enable_parallel_fetch" mapstructure:"enable_parallel_fetch"`
	EnableAdvancedScoring bool `yaml:"enable_advanced_scoring" mapstructure:"enable_advanced_scoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. Environment overrides
// always win; missing values fall back to documented defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	// Every key gets a default so AutomaticEnv can bind it even when no
	// config file is present.
	for _, key := range []string{
		"webhooks.premium", "webhooks.low", "webhooks.free_weekend",
		"webhooks.discount", "webhooks.all", "webhooks.status",
		"webhooks.playstation", "webhooks.xbox", "webhooks.nintendo",
		"webhooks.vr", "webhooks.pc_deals",
		"roles.premium", "roles.low", "roles.free_weekend",
		"roles.discount", "roles.all",
		"roles.playstation", "roles.xbox", "roles.nintendo",
		"roles.vr", "roles.pc_deals",
		"apis.ggdeals_key", "apis.platprices_key", "apis.review_db_key",
		"cache.database_url", "sources.trust_table_path",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("regions.playstation", "es-es")
	v.SetDefault("regions.xbox_market", "ES")
	v.SetDefault("regions.nintendo", "ES")

	v.SetDefault("deals.min_discount", 30)
	v.SetDefault("deals.max_discount", 99)
	v.SetDefault("deals.min_score", 3.6)
	v.SetDefault("deals.max_price", 10.0)

	v.SetDefault("suspect.trust_threshold", 0.6)

	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.path", "dealwatch_cache.json")
	v.SetDefault("cache.max_age_days", 30)

	v.SetDefault("sources.fetch_timeout_secs", 20)
	v.SetDefault("sources.max_concurrent", 10)

	v.SetDefault("enrich.lookup_spacing_millis", 500)
	v.SetDefault("enrich.timeout_secs", 15)

	v.SetDefault("features.enable_ai_validation", true)
	v.SetDefault("features.enable_parallel_fetch", true)
	v.SetDefault("features.enable_advanced_scoring", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
