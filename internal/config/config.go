package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CAMDASH_PORT.
const EnvPrefix = "CAMDASH"

// Config keys shared by viper, cobra flags and the environment.
const (
	KeyPort            = "port"
	KeyBackendURL      = "backend_url"
	KeyRequestTimeout  = "request_timeout"
	KeyLogDir          = "log_dir"
	KeyLogLevel        = "log_level"
	KeyDBPath          = "db_path"
	KeyLocale          = "locale"
	KeySessionTTL      = "session_ttl"
	KeyRefreshDelay    = "refresh_delay"
	KeySaveConcurrency = "save_concurrency"
	KeyVisionStatusTTL = "vision_status_ttl"
	KeyMetricsEnabled  = "metrics_enabled"
)

type Config struct {
	Port            int
	BackendURL      string
	RequestTimeout  time.Duration
	LogDirectory    string
	LogLevel        string
	DBPath          string
	Locale          string
	SessionTTL      time.Duration
	RefreshDelay    time.Duration // wait before reloading after a finished download
	SaveConcurrency int           // parallel reference saves during manual curation
	VisionStatusTTL time.Duration
	MetricsEnabled  bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyBackendURL, "http://localhost:5000")
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyLogDir, filepath.Join(".", "logs"))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDBPath, filepath.Join(".", "data", "camdash.db"))
	v.SetDefault(KeyLocale, "pt-BR")
	v.SetDefault(KeySessionTTL, 12*time.Hour)
	v.SetDefault(KeyRefreshDelay, time.Second)
	v.SetDefault(KeySaveConcurrency, 4)
	v.SetDefault(KeyVisionStatusTTL, 5*time.Minute)
	v.SetDefault(KeyMetricsEnabled, true)
}

// NewViper returns a viper instance with defaults, environment binding and
// the optional camdash.yaml config file search paths.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("camdash")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(".", "config"))
	return v
}

// Load reads .env, then the optional config file, and returns the merged
// configuration. Flags bound to v before calling Load take precedence.
func Load(v *viper.Viper) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper snapshots the current viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:            v.GetInt(KeyPort),
		BackendURL:      strings.TrimRight(v.GetString(KeyBackendURL), "/"),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		LogDirectory:    v.GetString(KeyLogDir),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		DBPath:          v.GetString(KeyDBPath),
		Locale:          v.GetString(KeyLocale),
		SessionTTL:      v.GetDuration(KeySessionTTL),
		RefreshDelay:    v.GetDuration(KeyRefreshDelay),
		SaveConcurrency: v.GetInt(KeySaveConcurrency),
		VisionStatusTTL: v.GetDuration(KeyVisionStatusTTL),
		MetricsEnabled:  v.GetBool(KeyMetricsEnabled),
	}
}

// Validate checks values that would otherwise fail far from their source.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) url", KeyBackendURL, c.BackendURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid %s %d", KeyPort, c.Port)
	}
	if c.SaveConcurrency < 1 {
		return fmt.Errorf("invalid %s %d: must be at least 1", KeySaveConcurrency, c.SaveConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid %s %s", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.RefreshDelay < 0 {
		return fmt.Errorf("invalid %s %s", KeyRefreshDelay, c.RefreshDelay)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
