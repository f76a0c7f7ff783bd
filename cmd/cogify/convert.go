package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/airbusgeo/cogger"
	"github.com/airbusgeo/godal"
	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/rasterkit/cogify"
	"github.com/rasterkit/cogify/batch"
	"github.com/rasterkit/cogify/objstore"
	"github.com/rasterkit/cogify/validate"
)

var (
	overwrite    bool
	noReproject  bool
	useCOGDriver bool
	dtypeName    string
	reprojMethod string
	ovrMethod    string
	nodataStr    string
	targetSRS    string
	extraSw      string
	noVerify     bool
	keepLocalDir string
	configOpts   []string
	debugTemp    bool
)

// conversion flags are shared between convert and batch
func addConvertFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&overwrite, "overwrite", false, "reprocess even if the destination object exists")
	flags.BoolVar(&noReproject, "noReproject", false, "skip the reprojection stage")
	flags.BoolVar(&useCOGDriver, "cogDriver", false, "create the COG with gdal's COG driver instead of rebuilding the layout")
	flags.StringVar(&dtypeName, "dtype", "", "pixel data type override (detected from the source by default)")
	flags.StringVar(&reprojMethod, "reprojResampling", "", "explicit reprojection resampling method, bypasses data type selection")
	flags.StringVar(&ovrMethod, "ovrResampling", "", "explicit overview resampling method, bypasses data type selection")
	flags.StringVar(&nodataStr, "nodata", "", "nodata value override")
	flags.StringVar(&targetSRS, "srs", cogify.DefaultTargetSRS, "target spatial reference system")
	flags.StringVar(&extraSw, "switches", "", "extra gdal_translate switches, e.g. \"-b 1 -b 2\"")
	flags.BoolVar(&noVerify, "noVerify", false, "skip COG structure verification before upload")
	flags.StringVar(&keepLocalDir, "keepLocal", "", "also keep a copy of each produced COG in this directory")
	flags.StringArrayVar(&configOpts, "config", nil, "gdal configuration options")
	flags.BoolVar(&debugTemp, "debug", false, "keep temporary files")
}

var convertCmd = &cobra.Command{
	Use:   "convert s3://bucket/raw/file.tif s3://bucket/cogs/file.tif",
	Short: "convert a single file to a COG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd.Context(), args[0], args[1], 0, dtypeName)
	},
}

func init() {
	addConvertFlags(convertCmd)
}

// runConvert executes the whole per-file pipeline: existence check,
// directive resolution, reprojection, COG creation, verification, upload.
// size may be 0, in which case it is looked up; dtype may be empty, in
// which case it is read from the opened dataset.
func runConvert(ctx context.Context, srcName, dstName string, size int64, dtype string) error {
	exists, err := dstExists(ctx, dstName)
	if err != nil {
		return err
	}
	if exists && !overwrite {
		return fmt.Errorf("%s: %w", dstName, batch.ErrExists)
	}

	if size <= 0 {
		if size, err = srcSize(ctx, srcName); err != nil {
			return err
		}
	}

	srcDS, cleanupSrc, err := openSource(ctx, srcName)
	if err != nil {
		return err
	}
	defer cleanupSrc()
	defer srcDS.Close()

	d, err := resolveDirective(srcDS, size, dtype)
	if err != nil {
		return err
	}
	log.Info().
		Str("src", srcName).
		Str("tier", d.Tier.String()).
		Str("reprojection", d.Policy.Reprojection).
		Str("overviews", d.Policy.Overview).
		Int64("size", size).
		Msg("resolved directive")

	tdir, err := os.MkdirTemp(".", "tmpcog-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	if !debugTemp {
		defer os.RemoveAll(tdir)
	}

	work := srcDS
	if !noReproject {
		warpName := filepath.Join(tdir, "reproj-"+uuid.NewString()+".tif")
		log.Debug().Msgf("reprojecting to %s with %s", d.TargetSRS, d.Policy.Reprojection)
		warped, err := srcDS.Warp(warpName, d.WarpSwitches(),
			godal.CreationOption(d.WarpCreationOptions()...),
			godal.ConfigOption(configOpts...),
			godal.GTiff)
		if err != nil {
			return fmt.Errorf("warp %s: %w", srcName, err)
		}
		defer warped.Close()
		work = warped
	}

	final := filepath.Join(tdir, "cog-"+uuid.NewString()+".tif")
	if useCOGDriver {
		err = translateCOG(work, final, d)
	} else {
		err = assembleCOG(work, final, d)
	}
	if err != nil {
		return err
	}

	if !noVerify {
		rep, err := validate.CheckFile(final)
		if err != nil {
			return fmt.Errorf("produced file is not a valid cog: %w", err)
		}
		log.Debug().Msgf("verified cog: %dx%d, %d overviews", rep.Width, rep.Height, rep.Overviews)
	}

	if err := deliver(ctx, final, dstName); err != nil {
		return err
	}
	if keepLocalDir != "" {
		local := filepath.Join(keepLocalDir, filepath.Base(dstName))
		if err := copyFile(final, local); err != nil {
			return fmt.Errorf("keep local copy: %w", err)
		}
	}
	log.Info().Str("dst", dstName).Msg("uploaded cog")
	return nil
}

// translateCOG creates the COG in one pass with gdal's COG driver,
// overviews included.
func translateCOG(src *godal.Dataset, dst string, d cogify.Directive) error {
	sw := d.TranslateSwitches()
	if extraSw != "" {
		extra, err := shellwords.Parse(extraSw)
		if err != nil {
			return fmt.Errorf("invalid switches: %w", err)
		}
		sw = append(sw, extra...)
	}
	out, err := src.Translate(dst, sw, godal.ConfigOption(configOpts...))
	if err != nil {
		return fmt.Errorf("translate to cog: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// assembleCOG writes a tiled compressed tiff, builds internal overviews
// with the directive's resampling method, and restructures the result
// into COG layout.
func assembleCOG(src *godal.Dataset, dst string, d cogify.Directive) error {
	sw := []string{}
	if extraSw != "" {
		extra, err := shellwords.Parse(extraSw)
		if err != nil {
			return fmt.Errorf("invalid switches: %w", err)
		}
		sw = append(sw, extra...)
	}
	tmp := dst + ".work.tif"
	tiled, err := src.Translate(tmp, sw,
		godal.CreationOption(d.CreationOptions()...),
		godal.ConfigOption(configOpts...),
		godal.GTiff)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	defer os.Remove(tmp)

	alg, err := overviewAlg(d.Policy.Overview)
	if err != nil {
		tiled.Close()
		return err
	}
	if err := tiled.BuildOverviews(godal.Levels(2, 4, 8, 16, 32), godal.Resampling(alg)); err != nil {
		tiled.Close()
		return fmt.Errorf("build overviews: %w", err)
	}
	if err := tiled.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	in, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", tmp, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := cogger.Rewrite(out, in); err != nil {
		out.Close()
		return fmt.Errorf("cogify %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// resolveDirective derives the processing directive from the dataset's
// declared pixel type and the command's overrides.
func resolveDirective(ds *godal.Dataset, size int64, dtype string) (cogify.Directive, error) {
	opts := []cogify.DirectiveOption{cogify.WithTargetSRS(targetSRS)}
	hasMethodOverride := reprojMethod != "" || ovrMethod != ""
	if hasMethodOverride {
		opts = append(opts, cogify.WithMethods(reprojMethod, ovrMethod))
	}

	name := dtype
	if name == "" {
		name = ds.Structure().DataType.String()
	}
	dt, err := cogify.ParseDataType(name)
	if err != nil {
		if !hasMethodOverride {
			return cogify.Directive{}, err
		}
		// explicit methods make the type irrelevant for resampling;
		// compression falls back to no predictor
		log.Warn().Msgf("proceeding with unsupported data type %s", name)
		dt = cogify.DataType(name)
	}

	switch {
	case nodataStr != "":
		v, err := strconv.ParseFloat(nodataStr, 64)
		if err != nil {
			return cogify.Directive{}, fmt.Errorf("invalid nodata %q: %w", nodataStr, err)
		}
		opts = append(opts, cogify.WithNodata(v))
	default:
		if bands := ds.Bands(); len(bands) > 0 {
			if nd, ok := bands[0].NoData(); ok {
				opts = append(opts, cogify.WithNodata(nd))
				break
			}
		}
		opts = append(opts, cogify.WithAutoNodata())
	}

	return cogify.NewDirective(dt, size, opts...)
}

var overviewAlgs = map[string]godal.ResamplingAlg{
	"nearest":     godal.Nearest,
	"bilinear":    godal.Bilinear,
	"cubic":       godal.Cubic,
	"cubicspline": godal.CubicSpline,
	"lanczos":     godal.Lanczos,
	"average":     godal.Average,
	"mode":        godal.Mode,
	"gauss":       godal.Gauss,
}

func overviewAlg(name string) (godal.ResamplingAlg, error) {
	alg, ok := overviewAlgs[name]
	if !ok {
		return 0, fmt.Errorf("unsupported overview resampling %q for layout rebuild, use --cogDriver", name)
	}
	return alg, nil
}

// openSource opens the source dataset, streaming from the object store
// when possible and falling back to a local download.
func openSource(ctx context.Context, name string) (*godal.Dataset, func(), error) {
	nop := func() {}
	ds, err := godal.Open(name, godal.RasterOnly())
	if err == nil {
		return ds, nop, nil
	}
	if !objstore.IsRemote(name) {
		return nil, nop, fmt.Errorf("open %s: %w", name, err)
	}
	log.Warn().Err(err).Msgf("streaming open failed, downloading %s", name)

	scheme, bucket, key, perr := objstore.ParseURL(name)
	if perr != nil {
		return nil, nop, perr
	}
	if scheme != "s3" {
		return nil, nop, fmt.Errorf("open %s: %w", name, err)
	}
	local := filepath.Join("data_download", key)
	cleanup, cached, derr := store.DownloadCached(ctx, bucket, key, local)
	if derr != nil {
		return nil, nop, derr
	}
	if cached {
		log.Debug().Msgf("using cached download %s", local)
	}
	ds, err = godal.Open(local, godal.RasterOnly())
	if err != nil {
		cleanup()
		return nil, nop, fmt.Errorf("open %s: %w", local, err)
	}
	return ds, cleanup, nil
}

func dstExists(ctx context.Context, dst string) (bool, error) {
	if !objstore.IsRemote(dst) {
		_, err := os.Stat(dst)
		return err == nil, nil
	}
	scheme, bucket, key, err := objstore.ParseURL(dst)
	if err != nil {
		return false, err
	}
	if scheme == "gs" {
		cl, err := gsClient(ctx)
		if err != nil {
			return false, fmt.Errorf("gs client: %w", err)
		}
		return objstore.NewGS(cl).Exists(ctx, bucket, key)
	}
	return store.Exists(ctx, bucket, key)
}

func srcSize(ctx context.Context, src string) (int64, error) {
	if !objstore.IsRemote(src) {
		st, err := os.Stat(src)
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", src, err)
		}
		return st.Size(), nil
	}
	scheme, bucket, key, err := objstore.ParseURL(src)
	if err != nil {
		return 0, err
	}
	if scheme != "s3" {
		return 0, fmt.Errorf("size lookup not supported for %s", src)
	}
	return store.Size(ctx, bucket, key)
}

// deliver moves the produced file to its destination, uploading for
// object store urls and renaming for local ones.
func deliver(ctx context.Context, local, dst string) error {
	if !objstore.IsRemote(dst) {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", dst, err)
		}
		return copyFile(local, dst)
	}
	scheme, bucket, key, err := objstore.ParseURL(dst)
	if err != nil {
		return err
	}
	if scheme == "gs" {
		cl, err := gsClient(ctx)
		if err != nil {
			return fmt.Errorf("gs client: %w", err)
		}
		return objstore.NewGS(cl).Upload(ctx, local, bucket, key)
	}
	return store.Upload(ctx, local, bucket, key)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
