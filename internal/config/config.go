package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Covers
		Acquisition
		Catalog
		Providers
		Recommendations
		Maintenance
		Tasks
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Covers struct {
		Dir         string
		MediaURL    string // URL prefix under which Dir is served
		TargetWidth int    // Wider images are downscaled to this width
		MinWidth    int    // Narrower images are rejected
		JPEGQuality int
	}
	Acquisition struct {
		SourcePrecedence  []entities.SourceName
		RetryPeriod       time.Duration
		Workers           int
		RequestTimeout    time.Duration
		RequestsPerSecond float64
		UserAgent         string
	}
	Catalog struct {
		DSN                string
		WorkPrefix         string // Work tags look like <prefix><digits>
		Timezone           string // Zone the catalog writes MARC timestamps in
		ProviderIndicators map[entities.SourceName]string
		LinkIndicators     []LinkIndicator
	}
	LinkIndicator struct {
		Pattern       string         `mapstructure:"pattern"`
		Substitutions []Substitution `mapstructure:"substitutions"`
	}
	Substitution struct {
		Pattern     string `mapstructure:"pattern"`
		Replacement string `mapstructure:"replacement"`
	}
	Providers struct {
		Syndetics Syndetics
		Worldcat  Worldcat
		Zola      Zola
		Overdrive Overdrive
	}
	Syndetics struct {
		ClientID string
	}
	Worldcat struct {
		DefaultImageHash string
	}
	Zola struct {
		Key              string
		Secret           string
		DefaultImageHash string
	}
	Overdrive struct {
		ClientID     string
		ClientSecret string
		CollectionID string
		TokenURL     string
		APIURL       string
	}
	Recommendations struct {
		Source        entities.SourceName
		PerIdentifier int
		CacheTTL      time.Duration
		Workers       int
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
)

// NewConfig reads configuration from the environment, an optional .env file
// and an optional config file named by COVERCACHE_CONFIG_FILE. The file is
// where the structured tables (indicators, link substitutions) usually live.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("covers_media_url", "/media/covers/")
	v.SetDefault("image_width", 400)
	v.SetDefault("image_min_width", 0) // 0 = same as image_width
	v.SetDefault("image_jpeg_quality", 90)

	v.SetDefault("source_precedence", DefaultSourcePrecedence)
	v.SetDefault("retry_period_days", 7)
	v.SetDefault("acquisition_workers", 1)
	v.SetDefault("request_timeout", "20s")
	v.SetDefault("requests_per_second", 5.0)
	v.SetDefault("user_agent", "covercache/1.0")

	v.SetDefault("catalog_dsn", "")
	v.SetDefault("catalog_work_prefix", "")
	v.SetDefault("catalog_timezone", "America/New_York")

	v.SetDefault("overdrive_token_url", "https://oauth.overdrive.com/token")
	v.SetDefault("overdrive_api_url", "https://integration.api.overdrive.com")

	v.SetDefault("recommendations_source", string(entities.SourceZola))
	v.SetDefault("recommendations_per_identifier", 10)
	v.SetDefault("recommendations_cache_ttl", "24h")
	v.SetDefault("recommendations_workers", 4)

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 3 * * *")

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "6h")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if path := v.GetString("COVERCACHE_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var links []LinkIndicator
	if err := v.UnmarshalKey("link_indicators", &links); err != nil {
		return nil, fmt.Errorf("parse link_indicators: %w", err)
	}

	targetWidth := v.GetInt("IMAGE_WIDTH")
	minWidth := v.GetInt("IMAGE_MIN_WIDTH")
	if minWidth <= 0 {
		minWidth = targetWidth
	}

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Covers: Covers{
			Dir:         v.GetString("COVERS_DIR"),
			MediaURL:    v.GetString("COVERS_MEDIA_URL"),
			TargetWidth: targetWidth,
			MinWidth:    minWidth,
			JPEGQuality: v.GetInt("IMAGE_JPEG_QUALITY"),
		},
		Acquisition: Acquisition{
			SourcePrecedence:  ParseSourceList(v.GetString("SOURCE_PRECEDENCE")),
			RetryPeriod:       time.Duration(v.GetInt("RETRY_PERIOD_DAYS")) * 24 * time.Hour,
			Workers:           v.GetInt("ACQUISITION_WORKERS"),
			RequestTimeout:    v.GetDuration("REQUEST_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("REQUESTS_PER_SECOND"),
			UserAgent:         v.GetString("USER_AGENT"),
		},
		Catalog: Catalog{
			DSN:                v.GetString("CATALOG_DSN"),
			WorkPrefix:         v.GetString("CATALOG_WORK_PREFIX"),
			Timezone:           v.GetString("CATALOG_TIMEZONE"),
			ProviderIndicators: parseIndicators(v.GetStringMapString("provider_indicators")),
			LinkIndicators:     links,
		},
		Providers: Providers{
			Syndetics: Syndetics{
				ClientID: v.GetString("SYNDETICS_CLIENT_ID"),
			},
			Worldcat: Worldcat{
				DefaultImageHash: v.GetString("WORLDCAT_DEFAULT_IMAGE_HASH"),
			},
			Zola: Zola{
				Key:              v.GetString("ZOLA_KEY"),
				Secret:           v.GetString("ZOLA_SECRET"),
				DefaultImageHash: v.GetString("ZOLA_DEFAULT_IMAGE_HASH"),
			},
			Overdrive: Overdrive{
				ClientID:     v.GetString("OVERDRIVE_CLIENT_ID"),
				ClientSecret: v.GetString("OVERDRIVE_CLIENT_SECRET"),
				CollectionID: v.GetString("OVERDRIVE_COLLECTION_ID"),
				TokenURL:     v.GetString("OVERDRIVE_TOKEN_URL"),
				APIURL:       v.GetString("OVERDRIVE_API_URL"),
			},
		},
		Recommendations: Recommendations{
			Source:        entities.SourceName(v.GetString("RECOMMENDATIONS_SOURCE")),
			PerIdentifier: v.GetInt("RECOMMENDATIONS_PER_IDENTIFIER"),
			CacheTTL:      v.GetDuration("RECOMMENDATIONS_CACHE_TTL"),
			Workers:       v.GetInt("RECOMMENDATIONS_WORKERS"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}, nil
}

// ParseSourceList splits a comma separated list of source names.
func ParseSourceList(s string) []entities.SourceName {
	var out []entities.SourceName
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, entities.SourceName(part))
		}
	}
	return out
}

func parseIndicators(raw map[string]string) map[entities.SourceName]string {
	out := make(map[entities.SourceName]string, len(raw))
	for k, v := range raw {
		out[entities.SourceName(strings.ToLower(k))] = v
	}
	return out
}
