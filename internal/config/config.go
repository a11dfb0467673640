// Package config loads dupefind's engine configuration from
// a YAML file, environment variables, and CLI flags, via
// github.com/spf13/viper, godotenv, and an env-prefix convention, collapsed
// down to a single flat Config.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/grouper"
)

// Config mirrors the engine's enumerated configuration surface exactly,
// plus the scan roots and operational knobs a runnable CLI needs on top of
// the engine's own inputs.
type Config struct {
	Paths    []string `mapstructure:"paths" yaml:"paths"`
	Excludes []string `mapstructure:"excludes" yaml:"excludes"`
	MinSize  int64    `mapstructure:"min_size_bytes" yaml:"min_size_bytes"`
	Workers  int      `mapstructure:"workers" yaml:"workers"`

	Mode                       string   `mapstructure:"mode" yaml:"mode"`
	HashAlgorithm              string   `mapstructure:"hash_algorithm" yaml:"hash_algorithm"`
	IgnoreHardLinks            bool     `mapstructure:"ignore_hard_links" yaml:"ignore_hard_links"`
	TrustDeviceBoundaries      bool     `mapstructure:"trust_device_boundaries" yaml:"trust_device_boundaries"`
	UsePrehashCache            bool     `mapstructure:"use_prehash_cache" yaml:"use_prehash_cache"`
	UseFullHashCache           bool     `mapstructure:"use_fullhash_cache" yaml:"use_fullhash_cache"`
	MinCacheSizeBytes          int64    `mapstructure:"min_cache_size_bytes" yaml:"min_cache_size_bytes"`
	MinPrehashCacheSizeBytes   int64    `mapstructure:"min_prehash_cache_size_bytes" yaml:"min_prehash_cache_size_bytes"`
	CaseSensitiveNames         bool     `mapstructure:"case_sensitive_names" yaml:"case_sensitive_names"`
	ReferenceDirectories       []string `mapstructure:"reference_directories" yaml:"reference_directories"`
	DeleteOutdatedCacheEntries bool     `mapstructure:"delete_outdated_cache_entries" yaml:"delete_outdated_cache_entries"`

	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`

	DBPath   string `mapstructure:"db_path" yaml:"db_path"`
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// applyDefaults fills zero-valued fields after construction and unmarshal.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "hash"
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = "fast-streaming-64"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.MinPrehashCacheSizeBytes == 0 {
		c.MinPrehashCacheSizeBytes = 64 * 1024
	}
	if c.DBPath == "" {
		c.DBPath = "dupefind.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Schedule == "" {
		c.Schedule = "0 2 * * 0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads dupefind configuration with precedence flags > env > file >
// defaults. configFile == "" skips file loading.
func Load(configFile string, flags *cobra.Command) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("DUPEFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags.Flags()); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// WriteDefault writes a commented-free YAML skeleton of the default
// configuration to path, for "dupefind config init" to scaffold a starting
// point a user then edits by hand. Uses gopkg.in/yaml.v3 directly rather
// than viper's own writer, since this is a one-shot marshal of a plain
// struct and doesn't need viper's merged-sources machinery.
func WriteDefault(path string) error {
	cfg := Config{}
	cfg.applyDefaults()

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

// ResolveMode parses Config.Mode into a grouper.Mode, one of the
// enumerated {name, size+name, size, hash} values.
func (c *Config) ResolveMode() (grouper.Mode, error) {
	switch c.Mode {
	case "name":
		return grouper.ModeName, nil
	case "size+name", "size-name":
		return grouper.ModeSizeName, nil
	case "size":
		return grouper.ModeSize, nil
	case "hash":
		return grouper.ModeHash, nil
	default:
		return 0, fmt.Errorf("config: unknown mode %q (want name, size+name, size, or hash)", c.Mode)
	}
}

// ResolveAlgorithm parses Config.HashAlgorithm into a fingerprint.Algorithm.
func (c *Config) ResolveAlgorithm() (fingerprint.Algorithm, error) {
	return fingerprint.ParseAlgorithm(c.HashAlgorithm)
}
