// Package naming parses satellite product filenames into their components
// and assembles the standardized names under which COGs are published.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	dateRe      = regexp.MustCompile(`\d{8}`)
	datePartRe  = regexp.MustCompile(`_?\d{8}`)
	satelliteRe = regexp.MustCompile(`S[12][ABC]?`)
	acronymRe   = regexp.MustCompile(`[A-Z]{2,}`)
	camelRe     = regexp.MustCompile(`[a-z]+[A-Z][a-zA-Z]+`)
	// underscore is a word character, so \b would never fire between
	// tokens of an underscore-delimited filename
	locationRe  = regexp.MustCompile(`(?:^|_)([A-Z]{3})(?:_|\.|$)`)
	underscores = regexp.MustCompile(`_+`)
)

// Components are the pieces recognized in a product filename. Fields are
// empty when the corresponding token is absent.
type Components struct {
	Dir       string
	Filename  string
	Stem      string
	Ext       string
	Date      string // YYYY-MM-DD
	Satellite string // S1, S2A, ...
	Product   string // NDVI, trueColor, ...
	Location  string // 3-letter site code
}

// ConvertDate rewrites a compact YYYYMMDD date as YYYY-MM-DD. Anything
// that is not 8 characters long is returned unchanged.
func ConvertDate(date string) string {
	if len(date) != 8 {
		return date
	}
	return fmt.Sprintf("%s-%s-%s", date[0:4], date[4:6], date[6:8])
}

// ExtractDate finds the first 8-digit date in a filename, or "".
func ExtractDate(filename string) string {
	if m := dateRe.FindString(filename); m != "" {
		return ConvertDate(m)
	}
	return ""
}

// Parse splits a file path into its recognized components.
func Parse(filepath string) Components {
	dir, filename := path.Split(filepath)
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	c := Components{
		Dir:      strings.TrimSuffix(dir, "/"),
		Filename: filename,
		Stem:     stem,
		Ext:      ext,
		Date:     ExtractDate(stem),
	}
	c.Satellite = satelliteRe.FindString(stem)
	if m := acronymRe.FindString(stem); m != "" {
		c.Product = m
	} else if m := camelRe.FindString(stem); m != "" {
		c.Product = m
	}
	if m := locationRe.FindStringSubmatch(stem); m != nil {
		c.Location = m[1]
	}
	return c
}

// COGName builds the standardized output filename for a source file:
// "{event}_{stem}_{date}_{suffix}.tif" with compact dates stripped from
// the stem and repeated underscores collapsed.
func COGName(srcPath, event, suffix string) string {
	c := Parse(srcPath)
	stem := datePartRe.ReplaceAllString(c.Stem, "")

	var name string
	if c.Date != "" {
		name = fmt.Sprintf("%s_%s_%s_%s.tif", event, stem, c.Date, suffix)
	} else {
		name = fmt.Sprintf("%s_%s_%s.tif", event, stem, suffix)
	}
	return underscores.ReplaceAllString(name, "_")
}

// OutputKey joins prefix parts into an object key for the published COG.
func OutputKey(prefix, filename string) string {
	if prefix == "" {
		return filename
	}
	return strings.TrimSuffix(prefix, "/") + "/" + filename
}
