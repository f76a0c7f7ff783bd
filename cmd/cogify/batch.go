package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rasterkit/cogify/batch"
	"github.com/rasterkit/cogify/mapping"
)

var (
	mappingFile string
	srcBucket   string
	dstBase     string
	parallelism int
	reportOut   string
	metricsAddr string
)

var batchCmd = &cobra.Command{
	Use:   "batch --mapping mapping.csv --srcBucket raw-data --dst s3://cog-data",
	Short: "convert every file of a mapping, recording per-file results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		recs, err := mapping.ReadFile(mappingFile)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("mapping %s is empty", mappingFile)
		}
		dstBase = strings.TrimSuffix(dstBase, "/")

		var metrics *batch.Metrics
		if metricsAddr != "" {
			metrics = batch.NewMetrics()
			go func() {
				if err := metrics.Serve(metricsAddr); err != nil {
					log.Error().Err(err).Msg("metrics server stopped")
				}
			}()
		}

		runner := &batch.Runner{
			Workers: parallelism,
			Log:     log,
			Metrics: metrics,
			Process: func(ctx context.Context, rec mapping.Record) error {
				// batch runs trust the mapping's recorded type
				dtype := dtypeName
				if dtype == "" {
					dtype = rec.DataType
				}
				src := "s3://" + srcBucket + "/" + rec.SourceKey
				dst := dstBase + "/" + rec.OutputKey
				return runConvert(ctx, src, dst, rec.SizeBytes, dtype)
			},
		}
		results := runner.Run(ctx, recs)

		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", reportOut, err)
			}
			if err := mapping.WriteResults(f, results); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}

		s := batch.Summarize(results)
		log.Info().
			Int("success", s.Success).
			Int("skipped", s.Skipped).
			Int("failed", s.Failed).
			Msg("batch finished")
		if s.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", s.Failed, len(recs))
		}
		return nil
	},
}

func init() {
	addConvertFlags(batchCmd)
	flags := batchCmd.Flags()
	flags.StringVar(&mappingFile, "mapping", "", "csv mapping produced by list --csv")
	flags.StringVar(&srcBucket, "srcBucket", "", "bucket holding the source objects")
	flags.StringVar(&dstBase, "dst", "", "destination base url, e.g. s3://cog-data")
	flags.IntVar(&parallelism, "parallel", 1, "number of files converted concurrently")
	flags.StringVar(&reportOut, "report", "", "write the per-file result csv here")
	flags.StringVar(&metricsAddr, "metricsAddr", "", "serve prometheus metrics on this address while running")
	batchCmd.MarkFlagRequired("mapping")
	batchCmd.MarkFlagRequired("srcBucket")
	batchCmd.MarkFlagRequired("dst")
}
