package cogify

// ResamplingPolicy is the pair of method names handed to the raster tool:
// one for reprojection (gdalwarp -r) and one for overview generation
// (OVERVIEW_RESAMPLING creation option).
type ResamplingPolicy struct {
	Reprojection string
	Overview     string
}

type ErrInvalidOption struct {
	msg string
}

func (err ErrInvalidOption) Error() string {
	return err.msg
}

// fixed per-category table, never mutated after init
var policyTable = map[Category]ResamplingPolicy{
	Continuous:  {Reprojection: "bilinear", Overview: "average"},
	Categorical: {Reprojection: "nearest", Overview: "mode"},
}

type policyResolver struct {
	override *ResamplingPolicy
}

// PolicyOption customizes policy resolution.
type PolicyOption func(r *policyResolver) error

// Methods forces explicit reprojection and overview method names,
// bypassing the data-type table entirely. The names are passed through
// verbatim; only non-emptiness is checked.
func Methods(reprojection, overview string) PolicyOption {
	return func(r *policyResolver) error {
		if reprojection == "" || overview == "" {
			return ErrInvalidOption{"explicit resampling methods must not be empty"}
		}
		r.override = &ResamplingPolicy{Reprojection: reprojection, Overview: overview}
		return nil
	}
}

// ResolvePolicy returns the resampling policy for a data type:
// floating-point data resolves to (bilinear, average), 8-bit unsigned to
// (nearest, mode), and all other integer widths to (bilinear, average).
// A Methods option short-circuits the table.
func ResolvePolicy(dt DataType, opts ...PolicyOption) (ResamplingPolicy, error) {
	r := policyResolver{}
	for _, o := range opts {
		if err := o(&r); err != nil {
			return ResamplingPolicy{}, err
		}
	}
	if r.override != nil {
		return *r.override, nil
	}
	return policyTable[dt.Category()], nil
}
