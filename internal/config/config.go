// Copyright 2024 The mus-fuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the flag/env/YAML-backed configuration surface
// for mus-fuse, following the flags-bound-to-viper-keys pattern gcsfuse
// uses in its cfg package.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultCacheHeadKiB = 768
	DefaultCacheMax     = 10
	DefaultConfigPath   = "/etc/mus-fuse.yaml"
)

// Config is the fully resolved mount configuration, unmarshaled from
// viper once flags, environment variables, and an optional YAML file
// have all been bound.
type Config struct {
	Server     string `yaml:"server" mapstructure:"server"`
	MountPoint string `yaml:"mountpoint" mapstructure:"mountpoint"`

	HTTPUser string `yaml:"http-user" mapstructure:"http-user"`
	HTTPPass string `yaml:"http-pass" mapstructure:"http-pass"`

	CacheMaxCount int `yaml:"cache-max" mapstructure:"cache-max"`
	CacheHeadKiB  int `yaml:"cache-head" mapstructure:"cache-head"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

type LoggingConfig struct {
	Format   string `yaml:"format" mapstructure:"format"`
	Severity string `yaml:"severity" mapstructure:"severity"`
}

// CacheHeadBytes is CacheHeadKiB converted to the byte count the head
// cache actually bounds itself by.
func (c Config) CacheHeadBytes() int64 {
	return int64(c.CacheHeadKiB) * 1024
}

// Validate enforces the two startup-fatal preconditions from spec.md §6:
// server and mountpoint must both be resolvable.
func (c Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server must be set (--server or MUS_SERVER)")
	}
	if c.MountPoint == "" {
		return fmt.Errorf("mountpoint must be set (--mountpoint or MUS_MOUNTPOINT)")
	}
	return nil
}

// BindFlags registers the CLI surface from spec.md §6 and binds each flag
// to the viper key that Unmarshal below reads back into a Config.
func BindFlags(flags *pflag.FlagSet) error {
	flags.String("server", "", "Base URL of the remote catalog server.")
	if err := viper.BindPFlag("server", flags.Lookup("server")); err != nil {
		return err
	}

	flags.String("mountpoint", "", "Local directory to mount the catalog onto.")
	if err := viper.BindPFlag("mountpoint", flags.Lookup("mountpoint")); err != nil {
		return err
	}

	flags.Int("cache-max", DefaultCacheMax, "Maximum number of inodes held in the head cache.")
	if err := viper.BindPFlag("cache-max", flags.Lookup("cache-max")); err != nil {
		return err
	}

	flags.Int("cache-head", DefaultCacheHeadKiB, "Size in KiB of the cached file-head prefix.")
	if err := viper.BindPFlag("cache-head", flags.Lookup("cache-head")); err != nil {
		return err
	}

	if err := viper.BindEnv("server", "MUS_SERVER"); err != nil {
		return err
	}
	if err := viper.BindEnv("mountpoint", "MUS_MOUNTPOINT"); err != nil {
		return err
	}
	if err := viper.BindEnv("http-user", "MUS_HTTP_USER"); err != nil {
		return err
	}
	if err := viper.BindEnv("http-pass", "MUS_HTTP_PASS"); err != nil {
		return err
	}

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.severity", "info")

	return nil
}

// Load reads the optional YAML config file (if path is non-empty) and
// unmarshals the combined flag/env/file state into a Config.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.CacheMaxCount <= 0 {
		cfg.CacheMaxCount = DefaultCacheMax
	}
	if cfg.CacheHeadKiB <= 0 {
		cfg.CacheHeadKiB = DefaultCacheHeadKiB
	}

	return cfg, nil
}
