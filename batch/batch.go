// Package batch runs a COG conversion over a list of mapped files,
// sequentially or with a bounded worker pool, recording one result per
// file. A failing file never aborts the batch.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tbonfort/gobs"

	"github.com/rasterkit/cogify/mapping"
)

// ErrExists is returned by a ProcessFunc when the destination object is
// already present and overwriting is disabled; the file is recorded as
// skipped instead of failed.
var ErrExists = errors.New("destination already exists")

// ProcessFunc converts one mapped file.
type ProcessFunc func(ctx context.Context, rec mapping.Record) error

// Runner drives per-file processing.
type Runner struct {
	Process ProcessFunc
	Workers int // <=1 means sequential
	Log     zerolog.Logger
	Metrics *Metrics
}

// Run processes all records and returns one result per record, in input
// order. The context cancels scheduling of further files; files already
// started run to completion.
func (r *Runner) Run(ctx context.Context, recs []mapping.Record) []mapping.Result {
	results := make([]mapping.Result, len(recs))

	if r.Workers <= 1 {
		for i, rec := range recs {
			select {
			case <-ctx.Done():
				results[i] = canceled(rec)
				continue
			default:
			}
			results[i] = r.one(ctx, i, len(recs), rec)
		}
		return results
	}

	pool := gobs.NewPool(r.Workers)
	b := pool.Batch()
	var mu sync.Mutex
	for i, rec := range recs {
		i, rec := i, rec
		b.Submit(func() error {
			var res mapping.Result
			select {
			case <-ctx.Done():
				res = canceled(rec)
			default:
				res = r.one(ctx, i, len(recs), rec)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	// submitted funcs never return errors: per-file failures live in results
	_ = b.Wait()
	return results
}

func (r *Runner) one(ctx context.Context, idx, total int, rec mapping.Record) mapping.Result {
	log := r.Log.With().Str("source", rec.SourceKey).Str("output", rec.OutputKey).Logger()
	log.Info().Msgf("processing %d/%d", idx+1, total)

	start := time.Now()
	err := r.Process(ctx, rec)
	res := mapping.Result{
		SourceKey: rec.SourceKey,
		OutputKey: rec.OutputKey,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	switch {
	case err == nil:
		res.Status = mapping.StatusSuccess
		log.Info().Dur("took", res.Duration).Msg("converted")
	case errors.Is(err, ErrExists):
		res.Status = mapping.StatusSkipped
		res.Duration = 0
		log.Info().Msg("skipped, already exists")
	default:
		res.Status = mapping.StatusFailed
		res.Error = err.Error()
		log.Error().Err(err).Msg("conversion failed")
	}
	r.record(rec, res)
	return res
}

func canceled(rec mapping.Record) mapping.Result {
	return mapping.Result{
		SourceKey: rec.SourceKey,
		OutputKey: rec.OutputKey,
		Status:    mapping.StatusFailed,
		Error:     context.Canceled.Error(),
		Timestamp: time.Now(),
	}
}

func (r *Runner) record(rec mapping.Record, res mapping.Result) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.files.WithLabelValues(res.Status).Inc()
	if res.Status == mapping.StatusSuccess {
		r.Metrics.seconds.Observe(res.Duration.Seconds())
		r.Metrics.bytes.Add(float64(rec.SizeBytes))
	}
}

// Summary tallies a result list.
type Summary struct {
	Success, Skipped, Failed int
}

func Summarize(results []mapping.Result) Summary {
	s := Summary{}
	for _, r := range results {
		switch r.Status {
		case mapping.StatusSuccess:
			s.Success++
		case mapping.StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
