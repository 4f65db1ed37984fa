package archive

import (
	"context"
	"fmt"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/series"
)

// Driver identifies an object backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Open selects an object backend from configuration.
func Open(ctx context.Context, cfg *config.Config) (series.ObjectStore, error) {
	switch Driver(cfg.ArchiveDriver) {
	case DriverFilesystem, "":
		return NewFS(cfg.OutputDir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.ArchiveS3Bucket,
			Region:    cfg.ArchiveS3Region,
			Endpoint:  cfg.ArchiveS3Endpoint,
			PathStyle: cfg.ArchiveS3PathStyle,
			Prefix:    cfg.ArchiveS3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.ArchiveDriver)
	}
}
