package objstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	osgcs "github.com/airbusgeo/osio/gcs"
	oss3 "github.com/airbusgeo/osio/s3"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// StreamingConfig tunes the block cache used when GDAL reads bucket
// objects directly instead of downloading them first.
type StreamingConfig struct {
	BlockSize string
	NumBlocks int
}

// RegisterStreaming wires osio adapters into godal so s3:// and gs://
// dataset names can be opened like local files. The gs:// handler is only
// registered when a google storage client is supplied. The returned
// adapter reads s3:// uris directly, outside of gdal.
func RegisterStreaming(ctx context.Context, s3cl *awss3.Client, gscl *storage.Client, cfg StreamingConfig) (*osio.Adapter, error) {
	if cfg.BlockSize == "" {
		cfg.BlockSize = "512k"
	}
	if cfg.NumBlocks == 0 {
		cfg.NumBlocks = 1000
	}

	s3h, err := oss3.Handle(ctx, oss3.S3Client(s3cl))
	if err != nil {
		return nil, fmt.Errorf("s3 handle: %w", err)
	}
	s3a, err := osio.NewAdapter(s3h, osio.BlockSize(cfg.BlockSize), osio.NumCachedBlocks(cfg.NumBlocks))
	if err != nil {
		return nil, fmt.Errorf("osio adapter: %w", err)
	}
	if err := godal.RegisterVSIHandler("s3://", s3a); err != nil {
		return nil, fmt.Errorf("register s3 vsi handler: %w", err)
	}

	if gscl != nil {
		gsh, err := osgcs.Handle(ctx, osgcs.GCSClient(gscl))
		if err != nil {
			return nil, fmt.Errorf("gcs handle: %w", err)
		}
		gsa, err := osio.NewAdapter(gsh, osio.BlockSize(cfg.BlockSize), osio.NumCachedBlocks(cfg.NumBlocks))
		if err != nil {
			return nil, fmt.Errorf("osio adapter: %w", err)
		}
		if err := godal.RegisterVSIHandler("gs://", gsa); err != nil {
			return nil, fmt.Errorf("register gs vsi handler: %w", err)
		}
	}
	return s3a, nil
}
