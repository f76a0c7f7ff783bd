// Package cogify decides how a raster should be turned into a Cloud
// Optimized GeoTIFF: which resampling methods to use for reprojection and
// overview generation, and how to partition the work based on file size.
// The actual warping and COG restructuring are delegated to GDAL and to
// github.com/airbusgeo/cogger; this package only resolves the parameters
// that get passed to them.
package cogify

import (
	"fmt"
	"strings"
)

// DataType identifies a raster's declared pixel type, normalized to the
// numpy-style spelling.
type DataType string

const (
	Uint8   DataType = "uint8"
	Int8    DataType = "int8"
	Uint16  DataType = "uint16"
	Int16   DataType = "int16"
	Uint32  DataType = "uint32"
	Int32   DataType = "int32"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

// Category classifies pixel values as interpolatable measurements or
// discrete class labels.
type Category int

const (
	// Continuous data (NDVI, temperature, elevation, ...) may be
	// interpolated when resampled.
	Continuous Category = iota
	// Categorical data (land cover classes, masks) must never be
	// interpolated.
	Categorical
)

func (c Category) String() string {
	if c == Categorical {
		return "categorical"
	}
	return "continuous"
}

type ErrUnsupportedDataType struct {
	Name string
}

func (err ErrUnsupportedDataType) Error() string {
	return fmt.Sprintf("unsupported data type %q", err.Name)
}

// gdal spellings as reported by e.g. godal.Structure
var dtypeAliases = map[string]DataType{
	"byte":    Uint8,
	"uint8":   Uint8,
	"int8":    Int8,
	"uint16":  Uint16,
	"int16":   Int16,
	"uint32":  Uint32,
	"int32":   Int32,
	"float32": Float32,
	"float64": Float64,
}

// ParseDataType normalizes a pixel type identifier. Both numpy style
// ("uint8", "float32") and GDAL style ("Byte", "Float32") spellings are
// accepted. Unrecognized identifiers fail with ErrUnsupportedDataType
// rather than silently defaulting.
func ParseDataType(s string) (DataType, error) {
	dt, ok := dtypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrUnsupportedDataType{Name: s}
	}
	return dt, nil
}

// Category returns Categorical for 8-bit unsigned data, which in satellite
// products is almost always a classification or mask. All wider integer
// types could be either (elevation vs. class rasters) and default to
// Continuous, which is the safer choice for most remote sensing data.
func (dt DataType) Category() Category {
	if dt == Uint8 {
		return Categorical
	}
	return Continuous
}

// Float reports whether the type is a floating-point format.
func (dt DataType) Float() bool {
	return dt == Float32 || dt == Float64
}

func (dt DataType) String() string {
	return string(dt)
}
