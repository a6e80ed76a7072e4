package config

import (
	"os"
	"strings"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval        = 2
	DefaultRetentionDays   = 7
	DefaultPersistInterval = 60
	DefaultHistoryLimit    = 10
	DefaultTopLimit        = 10
	DefaultPoolSize        = 5
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 3000
	DefaultDBPath          = "/var/lib/sysmonitor/history.db"
	DefaultLogLevel        = "info"
)

// Config carries every runtime setting consumed by the sampling pipeline,
// the history store and the two consumer surfaces (TUI, API).
type Config struct {
	Mode            string `mapstructure:"mode"`
	Interval        int    `mapstructure:"interval"`
	RetentionDays   int    `mapstructure:"retention_days"`
	PersistInterval int    `mapstructure:"persist_interval"`
	HistoryLimit    int    `mapstructure:"history_limit"`
	TopLimit        int    `mapstructure:"top_limit"`
	Persistence     bool   `mapstructure:"persistence"`
	Database        string `mapstructure:"database"`
	PoolSize        int    `mapstructure:"pool_size"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	LogLevel        string `mapstructure:"log_level"`
	Debug           bool   `mapstructure:"debug"`
	Verbose         bool   `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("sysmonitor", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("mode", "tui", "Run mode: tui or api")
	fs.Int("interval", DefaultInterval, "Seconds between samples")
	fs.Int("retention-days", DefaultRetentionDays, "Days of history to retain")
	fs.Bool("persistence", true, "Persist snapshots to the history database")
	fs.String("database", DefaultDBPath, "Path to the history database")
	fs.String("host", DefaultHost, "API listen host")
	fs.Int("port", DefaultPort, "API listen port")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Flags use dashes, config keys use underscores
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if f.Changed {
			v.Set(key, f.Value.String())
		}
	})

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper) error {
	errFactory := errors.New()

	if path := os.Getenv("SYSMONITOR_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sysmonitor")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "tui")
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("persist_interval", DefaultPersistInterval)
	v.SetDefault("history_limit", DefaultHistoryLimit)
	v.SetDefault("top_limit", DefaultTopLimit)
	v.SetDefault("persistence", true)
	v.SetDefault("database", DefaultDBPath)
	v.SetDefault("pool_size", DefaultPoolSize)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Mode != "tui" && c.Mode != "api" {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Mode)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.PersistInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PersistInterval)
	}
	if c.RetentionDays <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "retention_days must be positive")
	}
	if c.PoolSize <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "pool_size must be positive")
	}
	if c.Persistence && c.Database == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "database path required when persistence is enabled")
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
