package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. GROUPING_REDIS_ADDR.
const EnvPrefix = "GROUPING"

// Config holds all runtime settings of the grouping server
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Grouping GroupingConfig `mapstructure:"grouping"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// GroupingConfig bounds the group count accepted from clients
type GroupingConfig struct {
	DefaultGroups int `mapstructure:"default_groups"`
	MaxGroups     int `mapstructure:"max_groups"`
}

// RedisConfig configures the archive store. An empty Addr disables it.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ArchiveTTL time.Duration `mapstructure:"archive_ttl"`
}

// LogConfig selects the slog level and handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 8,
		},
		Grouping: GroupingConfig{
			DefaultGroups: 5,
			MaxGroups:     500,
		},
		Redis: RedisConfig{
			ArchiveTTL: 15 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)

	v.SetDefault("grouping.default_groups", defaults.Grouping.DefaultGroups)
	v.SetDefault("grouping.max_groups", defaults.Grouping.MaxGroups)

	v.SetDefault("redis.addr", defaults.Redis.Addr)
	v.SetDefault("redis.password", defaults.Redis.Password)
	v.SetDefault("redis.db", defaults.Redis.DB)
	v.SetDefault("redis.archive_ttl", defaults.Redis.ArchiveTTL)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New returns a viper instance with defaults and GROUPING_* env overrides.
// When file is non-empty it is read as well.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the configuration from file (optional) and the environment.
func Load(file string) (*Config, error) {
	v, err := New(file)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper unmarshals and validates the settings held by v
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Grouping.DefaultGroups < 2 {
		errs = append(errs, fmt.Errorf("grouping.default_groups must be at least 2, got %d", c.Grouping.DefaultGroups))
	}
	if c.Grouping.MaxGroups < c.Grouping.DefaultGroups {
		errs = append(errs, fmt.Errorf("grouping.max_groups (%d) must not be below grouping.default_groups (%d)",
			c.Grouping.MaxGroups, c.Grouping.DefaultGroups))
	}
	if c.Redis.ArchiveTTL <= 0 {
		errs = append(errs, fmt.Errorf("redis.archive_ttl must be positive, got %s", c.Redis.ArchiveTTL))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// MaxUploadBytes returns the multipart memory limit in bytes
func (c *ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// StoreEnabled reports whether archives should be cached in Redis
func (c *RedisConfig) StoreEnabled() bool {
	return c.Addr != ""
}
