package cogify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	cases := map[string]DataType{
		"uint8":   Uint8,
		"Byte":    Uint8,
		"BYTE":    Uint8,
		" int16 ": Int16,
		"UInt16":  Uint16,
		"uint32":  Uint32,
		"Int32":   Int32,
		"float32": Float32,
		"Float64": Float64,
		"int8":    Int8,
	}
	for in, expected := range cases {
		dt, err := ParseDataType(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, dt, in)
	}

	for _, in := range []string{"", "complex64", "int64", "uint64", "str", "float16"} {
		_, err := ParseDataType(in)
		assert.ErrorAs(t, err, &ErrUnsupportedDataType{}, in)
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, Categorical, Uint8.Category())
	for _, dt := range []DataType{Int8, Uint16, Int16, Uint32, Int32, Float32, Float64} {
		assert.Equal(t, Continuous, dt.Category(), dt)
	}
}

func TestResolvePolicy(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64} {
		p, err := ResolvePolicy(dt)
		require.NoError(t, err)
		assert.Equal(t, ResamplingPolicy{"bilinear", "average"}, p, dt)
	}

	p, err := ResolvePolicy(Uint8)
	require.NoError(t, err)
	assert.Equal(t, ResamplingPolicy{"nearest", "mode"}, p)

	// non-uint8 integers default to the continuous methods
	for _, dt := range []DataType{Int8, Uint16, Int16, Uint32, Int32} {
		p, err := ResolvePolicy(dt)
		require.NoError(t, err)
		assert.Equal(t, ResamplingPolicy{"bilinear", "average"}, p, dt)
	}
}

func TestResolvePolicyIdempotent(t *testing.T) {
	first, err := ResolvePolicy(Uint8)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		p, err := ResolvePolicy(Uint8)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestResolvePolicyOverride(t *testing.T) {
	// explicit methods bypass the table and are returned verbatim
	p, err := ResolvePolicy(Uint8, Methods("cubic", "rms"))
	require.NoError(t, err)
	assert.Equal(t, ResamplingPolicy{"cubic", "rms"}, p)

	_, err = ResolvePolicy(Uint8, Methods("", "average"))
	assert.Error(t, err)
	_, err = ResolvePolicy(Uint8, Methods("bilinear", ""))
	assert.Error(t, err)
}
