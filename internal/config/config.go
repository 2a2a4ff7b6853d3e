// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config loads the settings of the rdb command from flags, the
// environment and an optional configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/canonical/rdb"
)

const (
	// FileName is the name of the configuration file, without extension.
	FileName = ".rdb"
	// EnvPrefix prefixes the environment variables, e.g. RDB_DB.
	EnvPrefix = "RDB"
)

// Keys of the settings.
const (
	KeyDB       = "db"
	KeyDir      = "dir"
	KeyStorage  = "storage"
	KeyAddress  = "address"
	KeyCluster  = "cluster"
	KeyLogLevel = "log_level"
)

// Config holds the settings of the rdb command.
type Config struct {
	DB       string
	Dir      string
	Storage  rdb.StorageType
	Address  string
	Cluster  []string
	LogLevel slog.Level
}

// New returns a viper instance reading .rdb.yaml from the working
// directory and RDB_ prefixed environment variables, with the defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDir, ".")
	v.SetDefault(KeyStorage, string(rdb.Persistent))
	v.SetDefault(KeyLogLevel, "info")
	return v
}

// LoadEnv loads the variables of the given .env files into the
// environment. Files that do not exist are skipped. Variables already set
// are left untouched.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("cannot load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration file, if there is one, and returns the
// settings.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("cannot read configuration: %w", err)
		}
	}

	cfg := &Config{
		DB:      v.GetString(KeyDB),
		Dir:     v.GetString(KeyDir),
		Storage: rdb.StorageType(v.GetString(KeyStorage)),
		Address: v.GetString(KeyAddress),
	}
	if cluster := v.GetStringSlice(KeyCluster); len(cluster) > 0 {
		cfg.Cluster = cluster
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the settings are complete.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("no database name given")
	}
	switch c.Storage {
	case rdb.Persistent, rdb.Temporary, rdb.Dqlite:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage)
	}
	if c.Storage == rdb.Dqlite && c.Address == "" {
		return fmt.Errorf("dqlite storage needs an address")
	}
	return nil
}

// Options returns the options for opening the database.
func (c *Config) Options(logger *slog.Logger) *rdb.Options {
	return &rdb.Options{
		StorageType: c.Storage,
		Dir:         c.Dir,
		Address:     c.Address,
		Cluster:     c.Cluster,
		Logger:      logger,
	}
}
