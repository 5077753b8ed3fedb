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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jacobsa/fuse"

	"github.com/house-of-vanity/mus-fuse/internal/catalog"
	"github.com/house-of-vanity/mus-fuse/internal/config"
	"github.com/house-of-vanity/mus-fuse/internal/logger"
	"github.com/house-of-vanity/mus-fuse/internal/musfs"
	"github.com/house-of-vanity/mus-fuse/internal/source"
)

// runMount fetches the catalog, builds the filesystem and blocks on the
// mount until the kernel tears it down, mirroring the shape of
// gcsfuse's mountWithStorageHandle + fuse.Mount + mfs.Join sequence.
func runMount(cfg config.Config) error {
	ctx := context.Background()
	auth := catalog.BasicAuthHeader(cfg.HTTPUser, cfg.HTTPPass)

	logger.Infof("fetching catalog from %s", cfg.Server)
	tracks, err := catalog.Fetch(ctx, &http.Client{}, cfg.Server, auth)
	if err != nil {
		return fmt.Errorf("fetching catalog: %w", err)
	}
	logger.Infof("catalog loaded: %d tracks", len(tracks))

	fs := musfs.New(musfs.Config{
		Tracks:     tracks,
		CacheHead:  cfg.CacheHeadBytes(),
		CacheMax:   cfg.CacheMaxCount,
		ServerAddr: cfg.Server,
		Source:     source.New(cfg.Server, auth),
	}, time.Now())

	server := musfs.NewServer(fs)

	mountCfg := &fuse.MountConfig{
		FSName:  "musfs",
		Subtype: "musfs",
		Options: map[string]string{
			"ro":           "",
			"sync_read":    "",
			"auto_unmount": "",
			"allow_other":  "",
		},
	}

	logger.Infof("mounting %s at %s", cfg.Server, cfg.MountPoint)
	mfs, err := fuse.Mount(cfg.MountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("waiting for unmount: %w", err)
	}

	logger.Infof("unmounted %s", cfg.MountPoint)
	return nil
}
