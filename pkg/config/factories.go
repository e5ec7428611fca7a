package config

import (
	"context"
	"fmt"

	"github.com/buildbeam/agentfs/pkg/content"
	"github.com/buildbeam/agentfs/pkg/content/cache"
	contentfs "github.com/buildbeam/agentfs/pkg/content/fs"
	contentmemory "github.com/buildbeam/agentfs/pkg/content/memory"
	contents3 "github.com/buildbeam/agentfs/pkg/content/s3"
)

// NewContentStore builds the artifact store selected by the configuration.
//
// When the cache tier is enabled the selected store becomes the remote tier
// behind a badger-indexed local cache. The returned closer releases store
// resources and is safe to call once.
func NewContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, func() error, error) {
	base, err := newBaseStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Cache.Enabled {
		return base, func() error { return nil }, nil
	}

	local, err := contentfs.New(ctx, cfg.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("create cache tier: %w", err)
	}
	cached, err := cache.New(local, base, cfg.Cache.IndexDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create cache index: %w", err)
	}
	return cached, cached.Close, nil
}

func newBaseStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "filesystem":
		store, err := contentfs.New(ctx, cfg.Filesystem.Path)
		if err != nil {
			return nil, fmt.Errorf("create filesystem store: %w", err)
		}
		return store, nil
	case "memory":
		return contentmemory.New(), nil
	case "s3":
		store, err := contents3.New(ctx, contents3.Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			KeyPrefix:    cfg.S3.KeyPrefix,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown content store type %q", cfg.Type)
	}
}
