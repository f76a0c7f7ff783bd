// Package validate checks that a produced GeoTIFF has the structure a
// Cloud Optimized GeoTIFF needs: internal tiling on every image, and a
// reduced-resolution overview chain whenever the full-resolution image is
// larger than a single tile.
package validate

import (
	"fmt"
	"os"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
)

type header struct {
	SubfileType  uint32   `tiff:"field,tag=254"`
	ImageWidth   uint64   `tiff:"field,tag=256"`
	ImageLength  uint64   `tiff:"field,tag=257"`
	StripOffsets []uint64 `tiff:"field,tag=273"`
	TileWidth    uint16   `tiff:"field,tag=322"`
	TileLength   uint16   `tiff:"field,tag=323"`
	TileOffsets  []uint64 `tiff:"field,tag=324"`
}

const subfileTypeReducedImage = 1

// Report summarizes the structure of a checked file.
type Report struct {
	Width, Height uint64
	TileWidth     uint16
	TileLength    uint16
	Overviews     int
}

// Check parses a TIFF and verifies its COG structure. A non-nil error
// describes the first structural violation found.
func Check(r tiff.ReadAtReadSeeker) (Report, error) {
	tif, err := tiff.Parse(r, nil, nil)
	if err != nil {
		return Report{}, fmt.Errorf("parse tiff: %w", err)
	}
	ifds := tif.IFDs()
	if len(ifds) == 0 {
		return Report{}, fmt.Errorf("no images")
	}

	rep := Report{}
	for i, tifd := range ifds {
		h := &header{}
		if err := tiff.UnmarshalIFD(tifd, h); err != nil {
			return Report{}, fmt.Errorf("ifd %d: %w", i, err)
		}
		if len(h.StripOffsets) > 0 {
			return Report{}, fmt.Errorf("ifd %d has strips", i)
		}
		if len(h.TileOffsets) == 0 || h.TileWidth == 0 || h.TileLength == 0 {
			return Report{}, fmt.Errorf("ifd %d is not tiled", i)
		}
		if i == 0 {
			if h.SubfileType&subfileTypeReducedImage != 0 {
				return Report{}, fmt.Errorf("first ifd is a reduced image")
			}
			rep.Width, rep.Height = h.ImageWidth, h.ImageLength
			rep.TileWidth, rep.TileLength = h.TileWidth, h.TileLength
		} else if h.SubfileType&subfileTypeReducedImage != 0 {
			rep.Overviews++
		}
	}

	// a raster larger than one tile must carry overviews to qualify
	if rep.Overviews == 0 &&
		(rep.Width > uint64(rep.TileWidth) || rep.Height > uint64(rep.TileLength)) {
		return rep, fmt.Errorf("missing overviews for %dx%d image", rep.Width, rep.Height)
	}
	return rep, nil
}

// CheckFile runs Check on a local file.
func CheckFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Check(f)
}
