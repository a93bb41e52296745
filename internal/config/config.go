// Package config loads and validates parser configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	GCP     GCPConfig     `mapstructure:"gcp"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Parser  ParserConfig  `mapstructure:"parser"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// GCPConfig holds project-level Google Cloud settings.
type GCPConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// PubSubConfig identifies the inbound token-URI subscription.
type PubSubConfig struct {
	Provider       string `mapstructure:"provider"`
	SubscriptionID string `mapstructure:"subscription_id"`
}

// StorageConfig sets the bucket and public prefixes for re-hosted content.
type StorageConfig struct {
	Provider   string `mapstructure:"provider"`
	Bucket     string `mapstructure:"bucket"`
	CDNPrefix  string `mapstructure:"cdn_prefix"`
	IPFSPrefix string `mapstructure:"ipfs_prefix"`
}

// DBConfig controls the Postgres pool holding token_uris rows.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ParserConfig governs the worker pool and per-item limits.
type ParserConfig struct {
	Workers         int   `mapstructure:"workers"`
	MaxContentBytes int64 `mapstructure:"max_content_bytes"`
	ImageQuality    int   `mapstructure:"image_quality"`
	PacingMs        int   `mapstructure:"pacing_ms"`
}

// ServerConfig controls the metrics/health HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PARSER")
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
	v.SetDefault("pubsub.provider", "pubsub")
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.ipfs_prefix", "https://ipfs.io/ipfs/")
	v.SetDefault("db.table", "token_uris")
	v.SetDefault("parser.workers", 4)
	v.SetDefault("parser.max_content_bytes", 5*1024*1024)
	v.SetDefault("parser.image_quality", 75)
	v.SetDefault("parser.pacing_ms", 500)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Parser.Workers <= 0 {
		return fmt.Errorf("parser.workers must be > 0")
	}
	if c.Parser.MaxContentBytes <= 0 {
		return fmt.Errorf("parser.max_content_bytes must be > 0")
	}
	if c.Parser.ImageQuality < 0 || c.Parser.ImageQuality > 100 {
		return fmt.Errorf("parser.image_quality must be between 0 and 100")
	}
	if c.Parser.PacingMs < 0 {
		return fmt.Errorf("parser.pacing_ms must be >= 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.PubSub.Provider == "pubsub" {
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("gcp.project_id is required for the pubsub provider")
		}
		if c.PubSub.SubscriptionID == "" {
			return fmt.Errorf("pubsub.subscription_id is required for the pubsub provider")
		}
	}
	if c.Storage.Provider == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the gcs provider")
	}
	return nil
}

// Pacing converts the configured pacing interval into a duration.
func (c Config) Pacing() time.Duration {
	return time.Duration(c.Parser.PacingMs) * time.Millisecond
}

// QueueDepth returns the bounded work queue capacity, sized to keep
// workers fed without unbounded growth under burst ingestion.
func (c Config) QueueDepth() int {
	return 2 * c.Parser.Workers
}
