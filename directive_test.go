package cogify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirective(t *testing.T) {
	d, err := NewDirective(Float32, 2*gib)
	require.NoError(t, err)
	assert.Equal(t, ResamplingPolicy{"bilinear", "average"}, d.Policy)
	assert.Equal(t, TierLarge, d.Tier)
	assert.Equal(t, 512, d.Chunking.ChunkSize)
	assert.Equal(t, "ZSTD", d.Compression.Compression)
	assert.Equal(t, 22, d.Compression.Level)
	assert.Equal(t, PredictorFloatingPoint, d.Compression.Predictor)
	assert.Equal(t, "EPSG:4326", d.TargetSRS)
	assert.Nil(t, d.Nodata)
}

func TestNewDirectiveErrors(t *testing.T) {
	_, err := NewDirective(Float32, 0)
	assert.ErrorAs(t, err, &ErrInvalidSize{})

	_, err = NewDirective(Uint8, 100, WithMethods("", ""))
	assert.Error(t, err)

	_, err = NewDirective(Uint8, 100, WithTargetSRS(""))
	assert.Error(t, err)
}

func TestNewDirectiveOverrides(t *testing.T) {
	d, err := NewDirective(Uint8, 100, WithMethods("cubicspline", "rms"),
		WithNodata(255), WithTargetSRS("EPSG:3857"))
	require.NoError(t, err)
	assert.Equal(t, ResamplingPolicy{"cubicspline", "rms"}, d.Policy)
	require.NotNil(t, d.Nodata)
	assert.Equal(t, 255.0, *d.Nodata)
	assert.Equal(t, "EPSG:3857", d.TargetSRS)
}

func TestNewDirectiveAutoNodata(t *testing.T) {
	d, err := NewDirective(Uint8, 100, WithAutoNodata())
	require.NoError(t, err)
	require.NotNil(t, d.Nodata)
	assert.Equal(t, 0.0, *d.Nodata)

	d, err = NewDirective(Int16, 100, WithAutoNodata())
	require.NoError(t, err)
	assert.Equal(t, -9999.0, *d.Nodata)

	// explicit nodata wins over the per-dtype default
	d, err = NewDirective(Int16, 100, WithAutoNodata(), WithNodata(-32768))
	require.NoError(t, err)
	assert.Equal(t, -32768.0, *d.Nodata)
}

func TestCompressionProfile(t *testing.T) {
	p := Compression(Uint16, gib)
	assert.Equal(t, PredictorHorizontal, p.Predictor)
	assert.Equal(t, 512, p.BlockSize)
	assert.Equal(t, "IF_SAFER", p.BigTIFF)

	p = Compression(Float64, 4*gib)
	assert.Equal(t, PredictorFloatingPoint, p.Predictor)
	assert.Equal(t, "YES", p.BigTIFF)
	assert.Equal(t, 512, p.BlockSize)

	p = Compression(Float32, 11*gib)
	assert.Equal(t, 256, p.BlockSize)
}

func TestNodataFor(t *testing.T) {
	assert.Equal(t, 0.0, NodataFor(Uint8))
	assert.Equal(t, 0.0, NodataFor(Uint16))
	assert.Equal(t, -128.0, NodataFor(Int8))
	assert.Equal(t, -9999.0, NodataFor(Int16))
	assert.Equal(t, -9999.0, NodataFor(Float32))
}

func TestWarpSwitches(t *testing.T) {
	d, err := NewDirective(Uint8, 100, WithNodata(0))
	require.NoError(t, err)
	sw := d.WarpSwitches()
	assert.Contains(t, sw, "-t_srs")
	assert.Contains(t, sw, "EPSG:4326")
	assert.Contains(t, sw, "nearest")
	assert.Contains(t, sw, "-srcnodata")
	assert.Contains(t, sw, "0")
	assert.Contains(t, sw, "-wm")
	assert.Contains(t, sw, "500")        // small tier memory budget
	assert.NotContains(t, sw, "average") // overview method is not a warp concern
}

func TestWarpCreationOptions(t *testing.T) {
	d, err := NewDirective(Float32, 2*gib)
	require.NoError(t, err)
	co := d.WarpCreationOptions()
	assert.Contains(t, co, "COMPRESS=NONE")
	assert.Contains(t, co, "BLOCKXSIZE=512") // large tier window size
}

func TestTranslateSwitches(t *testing.T) {
	d, err := NewDirective(Float32, 100)
	require.NoError(t, err)
	sw := d.TranslateSwitches()
	assert.Contains(t, sw, "COMPRESS=ZSTD")
	assert.Contains(t, sw, "LEVEL=22")
	assert.Contains(t, sw, "PREDICTOR=3")
	assert.Contains(t, sw, "OVERVIEW_RESAMPLING=average")
	assert.Contains(t, sw, "OVERVIEW_COUNT=5")
	assert.NotContains(t, sw, "-a_nodata")

	d, err = NewDirective(Float32, 100, WithNodata(-9999))
	require.NoError(t, err)
	assert.Contains(t, d.TranslateSwitches(), "-a_nodata")
	assert.Contains(t, d.TranslateSwitches(), "-9999")
}

func TestCreationOptions(t *testing.T) {
	d, err := NewDirective(Int32, 100)
	require.NoError(t, err)
	co := d.CreationOptions()
	assert.Contains(t, co, "TILED=YES")
	assert.Contains(t, co, "BLOCKXSIZE=512")
	assert.Contains(t, co, "COMPRESS=ZSTD")
	assert.Contains(t, co, "ZSTD_LEVEL=22")
	assert.Contains(t, co, "PREDICTOR=2")
}
