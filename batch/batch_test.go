package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasterkit/cogify/mapping"
)

func recs(n int) []mapping.Record {
	out := make([]mapping.Record, n)
	for i := range out {
		out[i] = mapping.Record{
			SourceKey: fmt.Sprintf("raw/%d.tif", i),
			OutputKey: fmt.Sprintf("cogs/%d.tif", i),
			SizeBytes: 100,
			DataType:  "uint8",
		}
	}
	return out
}

func TestRunSequential(t *testing.T) {
	var calls int32
	r := &Runner{
		Log: zerolog.Nop(),
		Process: func(_ context.Context, rec mapping.Record) error {
			atomic.AddInt32(&calls, 1)
			switch rec.SourceKey {
			case "raw/1.tif":
				return ErrExists
			case "raw/2.tif":
				return fmt.Errorf("gdal exploded")
			}
			return nil
		},
	}
	results := r.Run(context.Background(), recs(4))
	require.Len(t, results, 4)
	assert.Equal(t, int32(4), calls)

	assert.Equal(t, mapping.StatusSuccess, results[0].Status)
	assert.Equal(t, mapping.StatusSkipped, results[1].Status)
	assert.Equal(t, mapping.StatusFailed, results[2].Status)
	assert.Equal(t, "gdal exploded", results[2].Error)
	assert.Equal(t, mapping.StatusSuccess, results[3].Status)

	s := Summarize(results)
	assert.Equal(t, Summary{Success: 2, Skipped: 1, Failed: 1}, s)
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	r := &Runner{
		Log: zerolog.Nop(),
		Process: func(_ context.Context, _ mapping.Record) error {
			return fmt.Errorf("boom")
		},
	}
	results := r.Run(context.Background(), recs(3))
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, mapping.StatusFailed, res.Status)
	}
}

func TestRunParallel(t *testing.T) {
	var calls int32
	r := &Runner{
		Log:     zerolog.Nop(),
		Workers: 4,
		Process: func(_ context.Context, _ mapping.Record) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}
	results := r.Run(context.Background(), recs(20))
	require.Len(t, results, 20)
	assert.Equal(t, int32(20), calls)
	// results stay in input order
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("raw/%d.tif", i), res.SourceKey)
		assert.Equal(t, mapping.StatusSuccess, res.Status)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{
		Log: zerolog.Nop(),
		Process: func(_ context.Context, _ mapping.Record) error {
			t.Fatal("must not be called after cancel")
			return nil
		},
	}
	results := r.Run(ctx, recs(2))
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, mapping.StatusFailed, res.Status)
	}
}

func TestRunWithMetrics(t *testing.T) {
	m := NewMetrics()
	r := &Runner{
		Log:     zerolog.Nop(),
		Metrics: m,
		Process: func(_ context.Context, _ mapping.Record) error { return nil },
	}
	results := r.Run(context.Background(), recs(2))
	assert.Equal(t, Summary{Success: 2}, Summarize(results))
	// handler must serve without panicking on the private registry
	assert.NotNil(t, m.Handler())
}
