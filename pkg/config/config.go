// Package config loads the TitaniumShare server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (TITANIUMSHARE_* or the flat names below)
//  2. Configuration file (YAML)
//  3. Default values
//
// The loaded Config is immutable by convention: it is read once at startup
// and passed explicitly to components. Nothing mutates it afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
)

// DefaultMaxUploadBytes caps the in-process multipart upload path (100 MiB).
const DefaultMaxUploadBytes = 100 << 20

// Config is the full server configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains the HTTP API server configuration.
	Server api.APIConfig `mapstructure:"server" yaml:"server"`

	// Database configures the catalog (SQLite or PostgreSQL).
	Database catalog.Config `mapstructure:"database" yaml:"database"`

	// Blob configures the object store binding.
	Blob blob.Config `mapstructure:"blob" yaml:"blob"`

	// Upload configures the upload paths.
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`

	// Rooms configures peer-to-peer room lifetimes.
	Rooms RoomsConfig `mapstructure:"rooms" yaml:"rooms"`

	// Signaling configures the WebSocket transport.
	Signaling SignalingConfig `mapstructure:"signaling" yaml:"signaling"`

	// Janitor configures the background sweeper.
	Janitor JanitorConfig `mapstructure:"janitor" yaml:"janitor"`

	// Session configures the identity collaborator's token verification.
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Metrics toggles the Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// UploadConfig configures the upload paths.
type UploadConfig struct {
	// MaxUploadBytes caps the in-process multipart path. Presigned uploads
	// go straight to the blob store and are not bounded here.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"omitempty,min=1" yaml:"max_upload_bytes"`

	// PresignTTLSeconds is the validity window for upload and download URLs.
	PresignTTLSeconds int `mapstructure:"presign_ttl_seconds" validate:"omitempty,min=1" yaml:"presign_ttl_seconds"`
}

// PresignTTL returns the presign validity as a duration.
func (c UploadConfig) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLSeconds) * time.Second
}

// RoomsConfig configures peer-to-peer rooms.
type RoomsConfig struct {
	// TTLSeconds is the room lifetime from creation. Max 1 hour.
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"omitempty,min=1,max=3600" yaml:"ttl_seconds"`
}

// TTL returns the room lifetime as a duration.
func (c RoomsConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SignalingConfig configures the WebSocket transport.
type SignalingConfig struct {
	// IdleSeconds is the read deadline between client frames; keepalive
	// pings reset it.
	IdleSeconds int `mapstructure:"idle_seconds" validate:"omitempty,min=1" yaml:"idle_seconds"`
}

// IdleTimeout returns the idle read deadline as a duration.
func (c SignalingConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleSeconds) * time.Second
}

// JanitorConfig configures the background sweeper.
type JanitorConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"omitempty,min=1" yaml:"interval_seconds"`

	// RoomGraceSeconds is how long a hub room may lack a catalog row before
	// reconciliation tears it down.
	RoomGraceSeconds int `mapstructure:"room_grace_seconds" validate:"omitempty,min=1" yaml:"room_grace_seconds"`
}

// Interval returns the sweep cadence as a duration.
func (c JanitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RoomGrace returns the reconciliation grace period as a duration.
func (c JanitorConfig) RoomGrace() time.Duration {
	return time.Duration(c.RoomGraceSeconds) * time.Second
}

// SessionConfig configures verification of the identity collaborator's
// bearer tokens.
type SessionConfig struct {
	// Secret is the HMAC key shared with the identity collaborator.
	// Must be at least 32 characters.
	Secret string `mapstructure:"secret" validate:"required,min=32" yaml:"secret"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.Database.ApplyDefaults()
	if c.Upload.MaxUploadBytes == 0 {
		c.Upload.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Upload.PresignTTLSeconds == 0 {
		c.Upload.PresignTTLSeconds = 3600
	}
	if c.Rooms.TTLSeconds == 0 {
		c.Rooms.TTLSeconds = 3600
	}
	if c.Signaling.IdleSeconds == 0 {
		c.Signaling.IdleSeconds = 60
	}
	if c.Janitor.IntervalSeconds == 0 {
		c.Janitor.IntervalSeconds = 60
	}
	if c.Janitor.RoomGraceSeconds == 0 {
		c.Janitor.RoomGraceSeconds = 300
	}
	if c.Blob.PresignTTL == 0 {
		c.Blob.PresignTTL = c.Upload.PresignTTL()
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config: field %s fails %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// flatEnvBindings maps config keys to the flat environment names documented
// in the deployment guide, accepted alongside the TITANIUMSHARE_* forms.
var flatEnvBindings = map[string]string{
	"blob.endpoint":              "BLOB_ENDPOINT",
	"blob.access_key":            "BLOB_ACCESS_KEY",
	"blob.secret_key":            "BLOB_SECRET_KEY",
	"blob.bucket":                "BLOB_BUCKET",
	"blob.region":                "BLOB_REGION",
	"upload.max_upload_bytes":    "MAX_UPLOAD_BYTES",
	"upload.presign_ttl_seconds": "PRESIGN_TTL_SECONDS",
	"rooms.ttl_seconds":          "ROOM_TTL_SECONDS",
	"janitor.interval_seconds":   "JANITOR_INTERVAL_SECONDS",
	"signaling.idle_seconds":     "SIGNALING_IDLE_SECONDS",
	"session.secret":             "SESSION_SECRET",
}

// Load reads configuration from the given file path (optional) and the
// environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TITANIUMSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range flatEnvBindings {
		prefixed := "TITANIUMSHARE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		logger.Debug("loaded configuration file", "path", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
