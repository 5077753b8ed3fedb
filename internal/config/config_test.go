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

package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestBindFlagsAndLoadAppliesDefaults(t *testing.T) {
	resetViper(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flags))
	require.NoError(t, flags.Parse([]string{"--server", "http://example.com", "--mountpoint", "/mnt/mus"}))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com", cfg.Server)
	assert.Equal(t, "/mnt/mus", cfg.MountPoint)
	assert.Equal(t, DefaultCacheMax, cfg.CacheMaxCount)
	assert.Equal(t, DefaultCacheHeadKiB, cfg.CacheHeadKiB)
	assert.EqualValues(t, DefaultCacheHeadKiB*1024, cfg.CacheHeadBytes())
}

func TestValidateRequiresServerAndMountPoint(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Server: "http://x"}.Validate())
	assert.NoError(t, Config{Server: "http://x", MountPoint: "/mnt"}.Validate())
}

func TestCacheOverrides(t *testing.T) {
	resetViper(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flags))
	require.NoError(t, flags.Parse([]string{
		"--server", "http://example.com",
		"--mountpoint", "/mnt/mus",
		"--cache-max", "2",
		"--cache-head", "4",
	}))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CacheMaxCount)
	assert.Equal(t, 4, cfg.CacheHeadKiB)
	assert.EqualValues(t, 4096, cfg.CacheHeadBytes())
}
