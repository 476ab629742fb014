// Package config loads application configuration and initializes logging.
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
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Routing     RoutingConfig     `yaml:"routing" mapstructure:"routing"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	Discovery   DiscoveryConfig   `yaml:"discovery" mapstructure:"discovery"`
	Match       MatchConfig       `yaml:"match" mapstructure:"match"`
	ServiceArea ServiceAreaConfig `yaml:"service_area" mapstructure:"service_area"`
	Schedule    ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig configures the ingestion orchestrator and adapters.
type IngestConfig struct {
	CatalogPath      string  `yaml:"catalog_path" mapstructure:"catalog_path"`
	CooldownSecs     int     `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	RequestDelayMs   int     `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	QualityThreshold float64 `yaml:"quality_threshold" mapstructure:"quality_threshold"`
}

// RoutingConfig holds routing/geocoding provider settings.
type RoutingConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Key          string `yaml:"key" mapstructure:"key"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs int    `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PlacesConfig holds place-directory provider settings.
type PlacesConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// DiscoveryConfig configures the provider discovery job.
type DiscoveryConfig struct {
	CenterLat          float64  `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng          float64  `yaml:"center_lng" mapstructure:"center_lng"`
	SearchRadiusKm     float64  `yaml:"search_radius_km" mapstructure:"search_radius_km"`
	SuitabilityCutoff  float64  `yaml:"suitability_cutoff" mapstructure:"suitability_cutoff"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`
	QueryTerms         []string `yaml:"query_terms" mapstructure:"query_terms"`
}

// MatchConfig configures the proximity matching engine.
type MatchConfig struct {
	EnhanceTopN     int `yaml:"enhance_top_n" mapstructure:"enhance_top_n"`
	DefaultCapacity int `yaml:"default_capacity" mapstructure:"default_capacity"`
	ClosedCapacity  int `yaml:"closed_capacity" mapstructure:"closed_capacity"`
	BusyCapacity    int `yaml:"busy_capacity" mapstructure:"busy_capacity"`
}

// ServiceAreaConfig configures reachability polygon construction.
type ServiceAreaConfig struct {
	Angles      int `yaml:"angles" mapstructure:"angles"`
	RadiusSteps int `yaml:"radius_steps" mapstructure:"radius_steps"`
}

// ScheduleConfig holds cron expressions for periodic jobs.
type ScheduleConfig struct {
	Ingestion string `yaml:"ingestion" mapstructure:"ingestion"`
	Discovery string `yaml:"discovery" mapstructure:"discovery"`
	Clusters  string `yaml:"clusters" mapstructure:"clusters"`
	Health    string `yaml:"health" mapstructure:"health"`
}

// ServerConfig configures the HTTP query surface.
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
	v.SetEnvPrefix("IMPORTIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ingest.catalog_path", "sources.yaml")
	v.SetDefault("ingest.cooldown_secs", 5)
	v.SetDefault("ingest.request_delay_ms", 2000)
	v.SetDefault("ingest.timeout_secs", 30)
	v.SetDefault("ingest.user_agent", "ImportIQBot/1.0 (+https://importiq.example/bot)")
	v.SetDefault("ingest.quality_threshold", 0.7)
	v.SetDefault("routing.batch_size", 25)
	v.SetDefault("routing.batch_delay_ms", 200)
	v.SetDefault("routing.timeout_secs", 10)
	v.SetDefault("discovery.center_lat", -33.8688)
	v.SetDefault("discovery.center_lng", 151.2093)
	v.SetDefault("discovery.search_radius_km", 50)
	v.SetDefault("discovery.suitability_cutoff", 0.6)
	v.SetDefault("discovery.rate_limit_per_second", 5)
	v.SetDefault("discovery.query_terms", []string{
		"vehicle import compliance workshop",
		"car modification shop",
		"automotive engineering certification",
		"right hand drive conversion",
		"vehicle inspection station",
	})
	v.SetDefault("match.enhance_top_n", 5)
	v.SetDefault("match.default_capacity", 70)
	v.SetDefault("match.closed_capacity", 0)
	v.SetDefault("match.busy_capacity", 25)
	v.SetDefault("service_area.angles", 12)
	v.SetDefault("service_area.radius_steps", 4)
	v.SetDefault("schedule.ingestion", "0 2 * * *")
	v.SetDefault("schedule.discovery", "0 4 * * 1")
	v.SetDefault("schedule.clusters", "0 5 * * 1")
	v.SetDefault("schedule.health", "*/30 * * * *")

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
