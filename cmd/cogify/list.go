package main

import (
	"fmt"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/spf13/cobra"

	"github.com/rasterkit/cogify"
	"github.com/rasterkit/cogify/mapping"
	"github.com/rasterkit/cogify/naming"
)

var (
	listExts    []string
	eventName   string
	nameSuffix  string
	dstPrefix   string
	mappingOut  string
	defaultType string
	probeTypes  bool
)

var listCmd = &cobra.Command{
	Use:   "list s3://bucket/prefix",
	Short: "discover source rasters in a bucket and build a conversion mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bucket, prefix, err := parseBucketPrefix(args[0])
		if err != nil {
			return err
		}

		objs, err := store.List(ctx, bucket, prefix, listExts...)
		if err != nil {
			return err
		}
		log.Info().Msgf("discovered %d objects under s3://%s/%s", len(objs), bucket, prefix)

		recs := make([]mapping.Record, 0, len(objs))
		for _, o := range objs {
			c := naming.Parse(o.Key)
			dtype := defaultType
			if probeTypes {
				if dt, err := probeDataType(o.URL()); err != nil {
					log.Warn().Err(err).Msgf("probe %s", o.URL())
				} else {
					dtype = dt
				}
			}
			outName := naming.COGName(o.Key, eventName, nameSuffix)
			rec := mapping.Record{
				SourceKey: o.Key,
				SizeBytes: o.Size,
				DataType:  dtype,
				OutputKey: naming.OutputKey(dstPrefix, outName),
			}
			recs = append(recs, rec)
			fmt.Printf("%s\t%d\t%s\tdate=%s sat=%s product=%s loc=%s -> %s\n",
				o.Key, o.Size, dtype, c.Date, c.Satellite, c.Product, c.Location, rec.OutputKey)
		}

		if mappingOut != "" {
			if err := mapping.WriteFile(mappingOut, recs); err != nil {
				return err
			}
			log.Info().Msgf("wrote mapping %s", mappingOut)
		}
		return nil
	},
}

// parseBucketPrefix accepts s3://bucket or s3://bucket/prefix.
func parseBucketPrefix(u string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(u, "s3://") {
		return "", "", fmt.Errorf("source must be an s3://bucket/prefix url, got %s", u)
	}
	rest := strings.TrimPrefix(u, "s3://")
	if rest == "" {
		return "", "", fmt.Errorf("source must be an s3://bucket/prefix url, got %s", u)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, nil
}

// probeDataType opens the raster over the streaming adapter just long
// enough to read its declared pixel type.
func probeDataType(url string) (string, error) {
	ds, err := godal.Open(url, godal.RasterOnly())
	if err != nil {
		return "", fmt.Errorf("open %s: %w", url, err)
	}
	defer ds.Close()
	dt, err := cogify.ParseDataType(ds.Structure().DataType.String())
	if err != nil {
		return "", err
	}
	return dt.String(), nil
}

func init() {
	flags := listCmd.Flags()
	flags.StringArrayVar(&listExts, "ext", []string{".tif", ".tiff"}, "extensions to discover")
	flags.StringVar(&eventName, "event", "", "event name used as output filename prefix")
	flags.StringVar(&nameSuffix, "suffix", "day", "output filename suffix")
	flags.StringVar(&dstPrefix, "dstPrefix", "", "key prefix for output objects")
	flags.StringVar(&mappingOut, "csv", "", "write the mapping to this csv file")
	flags.StringVar(&defaultType, "dtype", "float32", "data type recorded when not probing")
	flags.BoolVar(&probeTypes, "probe", false, "open each raster to read its real data type")
	listCmd.MarkFlagRequired("event")
}
