package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ghyeongl/importhistory/history"
)

const envPrefix = "IMPORTHISTORY"

// Backends accepted by the backend setting.
const (
	backendSQLite = "sqlite"
	backendFile   = "file"
	backendRedis  = "redis"
	backendMemory = "memory"
)

// appConfig is the effective configuration after defaults, config file,
// environment and flags.
type appConfig struct {
	HistoryLength     int      `mapstructure:"history_length" yaml:"history_length"`
	BulkThreshold     int      `mapstructure:"bulk_threshold" yaml:"bulk_threshold"`
	IgnoredExtensions []string `mapstructure:"ignored_extensions" yaml:"ignored_extensions"`
	ExtensionsFile    string   `mapstructure:"extensions_file" yaml:"extensions_file"`
	PrefKey           string   `mapstructure:"pref_key" yaml:"pref_key"`
	Backend           string   `mapstructure:"backend" yaml:"backend"`
	DBPath            string   `mapstructure:"db_path" yaml:"db_path"`
	PrefsFile         string   `mapstructure:"prefs_file" yaml:"prefs_file"`
	RedisAddr         string   `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix       string   `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	ListenAddr        string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogDir            string   `mapstructure:"log_dir" yaml:"log_dir"`
}

func setDefaults(v *viper.Viper) {
	d := history.DefaultConfig()
	v.SetDefault("history_length", d.HistoryLength)
	v.SetDefault("bulk_threshold", d.BulkThreshold)
	v.SetDefault("ignored_extensions", d.IgnoredExtensions)
	v.SetDefault("extensions_file", "")
	v.SetDefault("pref_key", d.PrefKey)
	v.SetDefault("backend", backendSQLite)
	v.SetDefault("db_path", "~/.importhistory/prefs.db")
	v.SetDefault("prefs_file", "~/.importhistory/prefs.json")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_prefix", "importhistory:")
	v.SetDefault("listen_addr", "127.0.0.1:8765")
	v.SetDefault("log_dir", "")
}

// newViper prepares a viper instance: defaults, environment with the
// IMPORTHISTORY_ prefix, and the flags of flags bound by their key name.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if key == "config" {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	return v, bindErr
}

// loadConfig reads configFile (if any) into v and decodes the result.
func loadConfig(v *viper.Viper, configFile string) (appConfig, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("decode config: %w", err)
	}

	var err error
	if cfg.DBPath, err = homedir.Expand(cfg.DBPath); err != nil {
		return appConfig{}, fmt.Errorf("db_path: %w", err)
	}
	if cfg.PrefsFile, err = homedir.Expand(cfg.PrefsFile); err != nil {
		return appConfig{}, fmt.Errorf("prefs_file: %w", err)
	}
	if cfg.ExtensionsFile, err = homedir.Expand(cfg.ExtensionsFile); err != nil {
		return appConfig{}, fmt.Errorf("extensions_file: %w", err)
	}
	if cfg.LogDir, err = homedir.Expand(cfg.LogDir); err != nil {
		return appConfig{}, fmt.Errorf("log_dir: %w", err)
	}

	return cfg, validateConfig(cfg)
}

func validateConfig(cfg appConfig) error {
	if cfg.HistoryLength <= 0 {
		return fmt.Errorf("history_length must be positive, got %d", cfg.HistoryLength)
	}
	if cfg.BulkThreshold <= 0 {
		return fmt.Errorf("bulk_threshold must be positive, got %d", cfg.BulkThreshold)
	}
	switch cfg.Backend {
	case backendSQLite, backendFile, backendRedis, backendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, file, redis or memory)", cfg.Backend)
	}
	return nil
}

// serviceConfig turns the app config into the history service settings,
// reading the extensions file when one is configured.
func serviceConfig(cfg appConfig) (history.Config, error) {
	exts := cfg.IgnoredExtensions
	if cfg.ExtensionsFile != "" {
		loaded, err := history.LoadExtensionFile(cfg.ExtensionsFile)
		if err != nil {
			return history.Config{}, err
		}
		exts = loaded
	}
	if exts == nil {
		exts = []string{}
	}
	return history.Config{
		HistoryLength:     cfg.HistoryLength,
		BulkThreshold:     cfg.BulkThreshold,
		IgnoredExtensions: exts,
		PrefKey:           cfg.PrefKey,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openPrefs opens the configured preference backend. The closer releases it.
func openPrefs(cfg appConfig) (history.PrefStore, io.Closer, error) {
	switch cfg.Backend {
	case backendSQLite:
		db, err := history.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		p := history.NewSQLitePrefs(db)
		return p, p, nil
	case backendFile:
		return history.NewFilePrefs(afero.NewOsFs(), cfg.PrefsFile), nopCloser{}, nil
	case backendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		p := history.NewRedisPrefs(client, cfg.RedisPrefix, 2*time.Second)
		return p, p, nil
	case backendMemory:
		return history.NewMemoryPrefs(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
