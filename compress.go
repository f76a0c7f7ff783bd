package cogify

// TIFF predictor values, see also the Predictor tag in the tiff spec.
const (
	PredictorNone          = 1
	PredictorHorizontal    = 2
	PredictorFloatingPoint = 3
)

const (
	// size thresholds that adjust the compression profile, independent of
	// the processing tier
	bigtiffThreshold    = 3 << 30  // force BIGTIFF=YES above 3GiB
	smallBlockThreshold = 10 << 30 // shrink blocks above 10GiB
)

// CompressionProfile holds the GTiff/COG creation parameters for one file.
// Compression is always ZSTD at maximum level; predictor and block size
// are derived from the data type and byte size.
type CompressionProfile struct {
	Compression string
	Level       int
	Predictor   int
	BlockSize   int
	BigTIFF     string
	NumThreads  string
}

// PredictorFor selects the TIFF predictor for a data type: floating-point
// prediction for float data, horizontal differencing for the integer
// types narrow enough to benefit from it.
func PredictorFor(dt DataType) int {
	if dt.Float() {
		return PredictorFloatingPoint
	}
	switch dt {
	case Uint8, Int8, Uint16, Int16, Uint32, Int32:
		return PredictorHorizontal
	default:
		return PredictorNone
	}
}

// NodataFor returns the conventional nodata value for a data type when the
// source declares none: 0 for unsigned 8/16 bit data, the type minimum for
// int8, and -9999 otherwise.
func NodataFor(dt DataType) float64 {
	switch dt {
	case Uint8, Uint16:
		return 0
	case Int8:
		return -128
	default:
		return -9999
	}
}

// Compression assembles the profile for a data type and byte size.
func Compression(dt DataType, size int64) CompressionProfile {
	p := CompressionProfile{
		Compression: "ZSTD",
		Level:       22,
		Predictor:   PredictorFor(dt),
		BlockSize:   512,
		BigTIFF:     "IF_SAFER",
		NumThreads:  "ALL_CPUS",
	}
	if size > bigtiffThreshold {
		p.BigTIFF = "YES"
	}
	if size > smallBlockThreshold {
		p.BlockSize = 256
	}
	return p
}
