package cogify

import (
	"fmt"
	"strconv"
)

// DefaultTargetSRS is the projection all published COGs are warped to.
const DefaultTargetSRS = "EPSG:4326"

// Directive is the full set of parameters for converting one file,
// resolved fresh per file and consumed by the gdal invocation layer.
type Directive struct {
	Policy      ResamplingPolicy
	Tier        SizeTier
	Chunking    ChunkConfig
	Compression CompressionProfile
	Nodata      *float64
	TargetSRS   string
}

type directiveConfig struct {
	policyOpts []PolicyOption
	nodata     *float64
	autoNodata bool
	targetSRS  string
}

// DirectiveOption customizes directive assembly.
type DirectiveOption func(c *directiveConfig) error

// WithMethods forwards explicit resampling method names, bypassing the
// data-type table.
func WithMethods(reprojection, overview string) DirectiveOption {
	return func(c *directiveConfig) error {
		c.policyOpts = append(c.policyOpts, Methods(reprojection, overview))
		return nil
	}
}

// WithNodata forces a nodata value on the output.
func WithNodata(v float64) DirectiveOption {
	return func(c *directiveConfig) error {
		c.nodata = &v
		return nil
	}
}

// WithAutoNodata fills in the conventional per-dtype nodata value when the
// source declares none.
func WithAutoNodata() DirectiveOption {
	return func(c *directiveConfig) error {
		c.autoNodata = true
		return nil
	}
}

// WithTargetSRS overrides the reprojection target.
func WithTargetSRS(srs string) DirectiveOption {
	return func(c *directiveConfig) error {
		if srs == "" {
			return ErrInvalidOption{"target srs must not be empty"}
		}
		c.targetSRS = srs
		return nil
	}
}

// NewDirective combines the resampling policy and the size-tier strategy
// for one file. Errors from either sub-selector propagate unchanged.
func NewDirective(dt DataType, size int64, opts ...DirectiveOption) (Directive, error) {
	c := directiveConfig{targetSRS: DefaultTargetSRS}
	for _, o := range opts {
		if err := o(&c); err != nil {
			return Directive{}, err
		}
	}
	tier, err := TierFor(size)
	if err != nil {
		return Directive{}, err
	}
	policy, err := ResolvePolicy(dt, c.policyOpts...)
	if err != nil {
		return Directive{}, err
	}
	d := Directive{
		Policy:      policy,
		Tier:        tier,
		Chunking:    tier.Chunking(),
		Compression: Compression(dt, size),
		Nodata:      c.nodata,
		TargetSRS:   c.targetSRS,
	}
	if d.Nodata == nil && c.autoNodata {
		nd := NodataFor(dt)
		d.Nodata = &nd
	}
	return d, nil
}

// WarpSwitches serializes the directive into gdalwarp switches for the
// reprojection stage, including the tier's warp memory budget.
func (d Directive) WarpSwitches() []string {
	sw := []string{
		"-t_srs", d.TargetSRS,
		"-r", d.Policy.Reprojection,
		"-multi",
		"-wm", strconv.Itoa(d.Chunking.MemoryLimitMB),
		"-wo", "NUM_THREADS=" + d.Compression.NumThreads,
		"-wo", "OPTIMIZE_SIZE=YES",
	}
	if d.Nodata != nil {
		nd := strconv.FormatFloat(*d.Nodata, 'g', -1, 64)
		sw = append(sw, "-srcnodata", nd, "-dstnodata", nd)
	}
	return sw
}

// WarpCreationOptions returns the creation options for the intermediate
// reprojected file: tiled to the tier's window size, uncompressed so only
// the final COG pays the ZSTD cost.
func (d Directive) WarpCreationOptions() []string {
	return []string{
		"TILED=YES",
		fmt.Sprintf("BLOCKXSIZE=%d", d.Chunking.ChunkSize),
		fmt.Sprintf("BLOCKYSIZE=%d", d.Chunking.ChunkSize),
		"COMPRESS=NONE",
		"BIGTIFF=" + d.Compression.BigTIFF,
	}
}

// TranslateSwitches serializes the directive into gdal_translate switches
// for the COG creation stage.
func (d Directive) TranslateSwitches() []string {
	sw := []string{
		"-of", "COG",
		"-co", "COMPRESS=" + d.Compression.Compression,
		"-co", fmt.Sprintf("LEVEL=%d", d.Compression.Level),
		"-co", fmt.Sprintf("PREDICTOR=%d", d.Compression.Predictor),
		"-co", fmt.Sprintf("BLOCKSIZE=%d", d.Compression.BlockSize),
		"-co", "BIGTIFF=" + d.Compression.BigTIFF,
		"-co", "NUM_THREADS=" + d.Compression.NumThreads,
		"-co", "OVERVIEW_RESAMPLING=" + d.Policy.Overview,
		"-co", "OVERVIEW_COUNT=5",
	}
	if d.Nodata != nil {
		sw = append(sw, "-a_nodata", strconv.FormatFloat(*d.Nodata, 'g', -1, 64))
	}
	return sw
}

// CreationOptions returns the tiff creation options for writing a tiled
// intermediate with the directive's compression settings, in KEY=VALUE
// form as expected by godal.CreationOption.
func (d Directive) CreationOptions() []string {
	return []string{
		"TILED=YES",
		fmt.Sprintf("BLOCKXSIZE=%d", d.Compression.BlockSize),
		fmt.Sprintf("BLOCKYSIZE=%d", d.Compression.BlockSize),
		"COMPRESS=" + d.Compression.Compression,
		fmt.Sprintf("ZSTD_LEVEL=%d", d.Compression.Level),
		fmt.Sprintf("PREDICTOR=%d", d.Compression.Predictor),
		"BIGTIFF=" + d.Compression.BigTIFF,
		"NUM_THREADS=" + d.Compression.NumThreads,
	}
}
