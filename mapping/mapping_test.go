package mapping

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	recs := []Record{
		{SourceKey: "raw/S2_NDVI_20240115.tif", SizeBytes: 123456, DataType: "float32", OutputKey: "cogs/ev_S2_NDVI_2024-01-15_day.tif"},
		{SourceKey: "raw/S1_mask.tif", SizeBytes: 42, DataType: "uint8", OutputKey: "cogs/ev_S1_mask_day.tif"},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestReadNoHeader(t *testing.T) {
	in := "raw/a.tif,100,uint8,cogs/a.tif\n"
	got, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(100), got[0].SizeBytes)
}

func TestReadBadSize(t *testing.T) {
	in := "raw/a.tif,huge,uint8,cogs/a.tif\n"
	_, err := Read(strings.NewReader(in))
	assert.Error(t, err)
}

func TestReadBadColumns(t *testing.T) {
	in := "raw/a.tif,100\n"
	_, err := Read(strings.NewReader(in))
	assert.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResults(&buf, []Result{
		{SourceKey: "raw/a.tif", OutputKey: "cogs/a.tif", Status: StatusSuccess,
			Duration: 90 * time.Second, Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{SourceKey: "raw/b.tif", Status: StatusFailed, Error: "no such key"},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "90.0")
	assert.Contains(t, out, "no such key")
}
