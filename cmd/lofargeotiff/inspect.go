package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"lofargeotiff/internal/gdal"
	"lofargeotiff/internal/raster"
)

func runInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lofargeotiff inspect <file.tif>\n")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageError{err: err}
	}
	if fs.NArg() != 1 {
		return usagef("inspect needs exactly one raster path")
	}
	path := fs.Arg(0)

	info, err := gdal.GetInfo(ctx, path)
	if err != nil {
		return fmt.Errorf("get raster info: %w", err)
	}

	return writeInspectTable(stdout, path, info)
}

// rasterBBox prefers the bbox gdalinfo reports and otherwise derives it
// from the geotransform.
func rasterBBox(info gdal.RasterInfo) [4]float64 {
	if info.WGS84BBox != nil {
		return *info.WGS84BBox
	}
	return raster.AffineFromGDAL(info.GeoTransform).Bounds(info.Width, info.Height)
}

func writeInspectTable(w io.Writer, path string, info gdal.RasterInfo) error {
	bbox := rasterBBox(info)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rows := [][2]string{
		{"path", path},
		{"size", fmt.Sprintf("%dx%d", info.Width, info.Height)},
		{"bands", fmt.Sprintf("%d (%s)", len(info.BandTypes), strings.Join(info.BandTypes, ", "))},
		{"geotransform", formatFloats(info.GeoTransform[:])},
		{"bbox", formatFloats(bbox[:])},
	}
	if info.CRSWKT != "" {
		rows = append(rows, [2]string{"crs", firstLine(info.CRSWKT)})
	}

	keys := make([]string, 0, len(info.Metadata))
	for key := range info.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rows = append(rows, [2]string{"tag " + key, info.Metadata[key]})
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
