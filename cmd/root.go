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

// Package cmd wires the flag/env/config surface from internal/config
// into a cobra command, following the pattern gcsfuse's own cmd package
// uses for its root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/house-of-vanity/mus-fuse/internal/config"
	"github.com/house-of-vanity/mus-fuse/internal/logger"
)

var (
	cfgFile string
	bindErr error
)

var rootCmd = &cobra.Command{
	Use:   "mus-fuse",
	Short: "Mount a remote HTTP music catalog as a read-only local filesystem.",
	Long: `mus-fuse exposes a remote, HTTP-accessible music library as a
read-only local filesystem. Each remote track appears as a regular file
whose bytes are fetched on demand from the catalog server via HTTP
range requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}

		configPath := cfgFile
		if configPath == "" {
			if _, err := os.Stat(config.DefaultConfigPath); err == nil {
				configPath = config.DefaultConfigPath
			}
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Init(cfg.Logging.Format, cfg.Logging.Severity)

		return runMount(cfg)
	},
}

// Execute runs the root command, exiting with code 1 on any
// startup-fatal error per spec.md §6.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to an optional YAML config file (default /etc/mus-fuse.yaml if present).")
	bindErr = config.BindFlags(rootCmd.PersistentFlags())
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}
