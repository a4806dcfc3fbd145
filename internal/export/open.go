package export

import (
	"context"
	"fmt"

	"github.com/nvandessel/supplyshock/internal/config"
)

// Open returns the sink configured by cfg. dir is the resolved filesystem
// directory used by the fs driver.
func Open(ctx context.Context, cfg config.ExportConfig, dir string) (Sink, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSSink(dir), nil
	case "s3":
		return NewS3Sink(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown export driver %q", cfg.Driver)
	}
}
