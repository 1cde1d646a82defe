// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Origin  OriginConfig  `mapstructure:"origin"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Share   ShareConfig   `mapstructure:"share"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OriginConfig points the scraper at the upstream directory listing.
type OriginConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MediaDir       string `mapstructure:"media_dir"`
}

// CacheConfig sets the on-disk cache location and snapshot TTL.
// A TTL of zero or below means every read triggers a background refresh.
type CacheConfig struct {
	Dir        string `mapstructure:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// ProbeConfig governs media dimension probing.
type ProbeConfig struct {
	FFProbePath      string `mapstructure:"ffprobe_path"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MediaConcurrency int    `mapstructure:"media_concurrency"`
}

// ShareConfig selects and configures the share card blob store.
type ShareConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// NotifyConfig selects the refresh event publisher.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// AdminConfig guards the admin endpoints. An empty secret leaves them
// registered but failing, so a misconfigured deploy is loud.
type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("origin.user_agent", "folio-bot/0.1")
	v.SetDefault("origin.timeout_seconds", 15)
	v.SetDefault("origin.media_dir", "media")
	v.SetDefault("cache.dir", "./cache")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("probe.ffprobe_path", "ffprobe")
	v.SetDefault("probe.timeout_seconds", 30)
	v.SetDefault("probe.media_concurrency", 3)
	v.SetDefault("share.provider", "local")
	v.SetDefault("share.local_dir", "./cache/share")
	v.SetDefault("share.gcs_prefix", "share")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Origin.BaseURL == "" {
		return fmt.Errorf("origin.base_url must be set")
	}
	if c.Origin.TimeoutSeconds <= 0 {
		return fmt.Errorf("origin.timeout_seconds must be > 0")
	}
	if c.Probe.MediaConcurrency <= 0 {
		return fmt.Errorf("probe.media_concurrency must be > 0")
	}
	switch c.Share.Provider {
	case "local", "noop":
	case "gcs":
		if c.Share.GCSBucket == "" {
			return fmt.Errorf("share.gcs_bucket must be set when share.provider is gcs")
		}
	default:
		return fmt.Errorf("share.provider must be local, gcs, or noop")
	}
	switch c.Notify.Provider {
	case "noop":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id must be set when notify.provider is pubsub")
		}
	default:
		return fmt.Errorf("notify.provider must be pubsub or noop")
	}
	return nil
}

// OriginTimeout returns the origin HTTP timeout as a duration.
func (c Config) OriginTimeout() time.Duration {
	return time.Duration(c.Origin.TimeoutSeconds) * time.Second
}

// CacheTTL returns the snapshot TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ProbeTimeout returns the ffprobe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}
