// Package objstore handles the object-storage side of the pipeline:
// discovering source rasters in a bucket, size/existence lookups,
// transfers, and registering streaming adapters so GDAL can read bucket
// objects directly.
package objstore

import (
	"fmt"
	"strings"
)

// Object is one discovered bucket entry.
type Object struct {
	Bucket string
	Key    string
	Size   int64
}

func (o Object) URL() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

// ParseURL splits an s3:// or gs:// URL into scheme, bucket and key.
func ParseURL(u string) (scheme, bucket, key string, err error) {
	for _, s := range []string{"s3", "gs"} {
		if strings.HasPrefix(u, s+"://") {
			rest := strings.TrimPrefix(u, s+"://")
			b, k, found := strings.Cut(rest, "/")
			if !found || b == "" || k == "" {
				return "", "", "", fmt.Errorf("invalid object url %s", u)
			}
			return s, b, k, nil
		}
	}
	return "", "", "", fmt.Errorf("unsupported object url %s", u)
}

// IsRemote reports whether a dataset name refers to an object store.
func IsRemote(name string) bool {
	return strings.HasPrefix(name, "s3://") || strings.HasPrefix(name, "gs://")
}

// matchExt filters listing results on file extension, case-insensitively.
// An empty filter accepts everything.
func matchExt(key string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	lower := strings.ToLower(key)
	for _, e := range exts {
		if strings.HasSuffix(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}
