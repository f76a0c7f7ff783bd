package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rasterkit/cogify/objstore"
	"github.com/rasterkit/cogify/validate"
)

var checkCmd = &cobra.Command{
	Use:   "check s3://bucket/cogs/file.tif...",
	Short: "verify that files have a valid COG structure",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bad := 0
		for _, name := range args {
			rep, err := checkOne(name)
			if err != nil {
				bad++
				fmt.Printf("FAIL %s: %v\n", name, err)
				continue
			}
			fmt.Printf("OK   %s: %dx%d, %dx%d tiles, %d overviews\n",
				name, rep.Width, rep.Height, rep.TileWidth, rep.TileLength, rep.Overviews)
		}
		if bad > 0 {
			return fmt.Errorf("%d of %d files are not valid cogs", bad, len(args))
		}
		return nil
	},
}

func checkOne(name string) (validate.Report, error) {
	if !objstore.IsRemote(name) {
		return validate.CheckFile(name)
	}
	scheme, _, _, err := objstore.ParseURL(name)
	if err != nil {
		return validate.Report{}, err
	}
	if scheme != "s3" {
		return validate.Report{}, fmt.Errorf("%s: only s3 urls can be checked remotely", name)
	}
	r, err := s3a.Reader(name)
	if err != nil {
		return validate.Report{}, fmt.Errorf("open %s: %w", name, err)
	}
	return validate.Check(r)
}
