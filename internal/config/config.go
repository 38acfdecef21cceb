package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"todosync/internal/utils"

	_ "embed"
)

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0644

	// EnvPrefix prefixes every environment override
	EnvPrefix = "TODOSYNC"
)

// Config represents the application configuration
type Config struct {
	DeviceID   string       `mapstructure:"device_id"`
	DateFormat string       `mapstructure:"date_format"`
	Remote     RemoteConfig `mapstructure:"remote"`
	Cache      CacheConfig  `mapstructure:"cache"`
	Sync       SyncConfig   `mapstructure:"sync"`
	Log        LogConfig    `mapstructure:"log"`
}

// RemoteConfig describes the list service
type RemoteConfig struct {
	Name               string        `mapstructure:"name" validate:"required,printascii,excludesall=/"`
	URL                string        `mapstructure:"url" validate:"required,url"`
	Token              string        `mapstructure:"token"`
	AuthScheme         string        `mapstructure:"auth_scheme" validate:"oneof=Bearer OAuth"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst              int           `mapstructure:"burst" validate:"gte=1"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// CacheConfig selects the Local Cache backend
type CacheConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=file sqlite"`
	Destination string `mapstructure:"destination" validate:"required"`
	Dir         string `mapstructure:"dir"`
	DBPath      string `mapstructure:"db_path"`
}

// SyncConfig tunes the sync coordinator
type SyncConfig struct {
	Policy          string        `mapstructure:"policy" validate:"oneof=server_wins keep_pending"`
	AutoResync      bool          `mapstructure:"auto_resync"`
	Interval        time.Duration `mapstructure:"interval" validate:"gte=0"`
	TombstoneTTL    time.Duration `mapstructure:"tombstone_ttl" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	SpawnOnExit     bool          `mapstructure:"spawn_on_exit"`
}

// LogConfig configures utils.Logger
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// LogOptions converts the section into logger options
func (c LogConfig) LogOptions() utils.LogOptions {
	return utils.LogOptions{
		Level:      c.Level,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_id", "")
	v.SetDefault("date_format", "2006-01-02")

	v.SetDefault("remote.name", "default")
	v.SetDefault("remote.url", "http://localhost:8080")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.auth_scheme", "Bearer")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.requests_per_second", 0)
	v.SetDefault("remote.burst", 1)
	v.SetDefault("remote.insecure_skip_verify", false)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.destination", "tasks.json")
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.db_path", "")

	v.SetDefault("sync.policy", "server_wins")
	v.SetDefault("sync.auto_resync", true)
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.tombstone_ttl", 10*time.Minute)
	v.SetDefault("sync.shutdown_timeout", 10*time.Second)
	v.SetDefault("sync.spawn_on_exit", false)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Default returns the configuration used when no file sets a key
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid configuration defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration at path, applying defaults and TODOSYNC_*
// environment overrides. A missing file is created from the sample first.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createConfigFromSample(path); err != nil {
			return nil, err
		}
		utils.Infof("Created configuration at %s", path)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and settings that depend on each other
func (c Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	if c.Cache.Backend == "file" && filepath.Base(c.Cache.Destination) != c.Cache.Destination && !filepath.IsAbs(c.Cache.Destination) {
		return utils.ErrInvalidConfig("cache.destination", "must be a file name or an absolute path")
	}
	if c.DateFormat != "" && time.Date(2001, 3, 4, 0, 0, 0, 0, time.UTC).Format(c.DateFormat) == c.DateFormat {
		return utils.ErrInvalidConfig("date_format", "must contain at least one date element, e.g. 2006-01-02")
	}
	return nil
}

// GetDateFormat returns the display date layout
func (c *Config) GetDateFormat() string {
	if c.DateFormat == "" {
		return "2006-01-02"
	}
	return c.DateFormat
}

// GetConfigPath resolves the configuration file. An explicit path wins; a
// directory is searched for config.yaml. Otherwise the XDG config directory
// is used.
func GetConfigPath(custom string) (string, error) {
	if custom != "" {
		expanded, err := utils.ExpandPath(custom)
		if err != nil {
			return "", err
		}
		if info, err := os.Stat(expanded); err == nil && info.IsDir() {
			return filepath.Join(expanded, CONFIG_FILE_PATH), nil
		}
		return expanded, nil
	}

	dir, err := utils.AppDir(utils.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_FILE_PATH), nil
}

// SampleConfig returns the embedded sample configuration
func SampleConfig() []byte {
	return append([]byte(nil), sampleConfig...)
}

func createConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), CONFIG_DIR_PERM)
}

// WriteConfigFile writes data to configPath
func WriteConfigFile(configPath string, data []byte) error {
	return os.WriteFile(configPath, data, CONFIG_FILE_PERM)
}

func createConfigFromSample(configPath string) error {
	if err := createConfigDir(configPath); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := WriteConfigFile(configPath, sampleConfig); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}
