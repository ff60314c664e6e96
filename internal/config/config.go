package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTHDESK_BASE_URL.
const EnvPrefix = "AUTHDESK"

type Config struct {
	BaseURL              string        `mapstructure:"base_url"`
	CacheDir             string        `mapstructure:"cache_dir"`
	DBPath               string        `mapstructure:"db_path"`
	LogPath              string        `mapstructure:"log_path"`
	LogLevel             string        `mapstructure:"log_level"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	SessionCheckInterval time.Duration `mapstructure:"session_check_interval"`
	ProfileTTL           time.Duration `mapstructure:"profile_ttl"`
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "authdesk")
	return Config{
		BaseURL:              "http://localhost:8000/api",
		CacheDir:             cacheDir,
		DBPath:               filepath.Join(cacheDir, "authdesk.db"),
		LogPath:              filepath.Join(cacheDir, "debug.log"),
		LogLevel:             "info",
		RequestTimeout:       10 * time.Second,
		SessionCheckInterval: 60 * time.Second,
		ProfileTTL:           5 * time.Minute,
	}
}

// Load layers an optional yaml file and AUTHDESK_* environment variables
// over Default. An empty path searches the working directory and CacheDir
// for authdesk.yaml; a missing file is not an error.
func Load(path string) (Config, error) {
	def := Default()
	v := viper.New()

	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("cache_dir", def.CacheDir)
	v.SetDefault("db_path", "")
	v.SetDefault("log_path", "")
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("session_check_interval", def.SessionCheckInterval)
	v.SetDefault("profile_ttl", def.ProfileTTL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("authdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(def.CacheDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	// Paths left empty follow cache_dir.
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.CacheDir, "authdesk.db")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(cfg.CacheDir, "debug.log")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: unsupported scheme %s", c.BaseURL, u.Scheme)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.SessionCheckInterval <= 0 {
		return fmt.Errorf("session_check_interval must be positive")
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
