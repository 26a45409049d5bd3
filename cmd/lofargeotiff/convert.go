package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lofargeotiff/internal/geojson"
	"lofargeotiff/internal/imagefile"
	"lofargeotiff/internal/logging"
	"lofargeotiff/internal/metrics"
	"lofargeotiff/internal/raster"
	"lofargeotiff/internal/station"
)

// StationsEnv names a station table file merged over the built-in table.
const StationsEnv = "LOFARGEOTIFF_STATIONS"

type convertOptions struct {
	input       string
	out         string
	llc         raster.Corner
	urc         raster.Corner
	lonLat      bool
	station     string
	stations    string
	obsDate     any
	tags        raster.Tags
	footprint   string
	metricsFile string
}

// tagList collects repeated --tag KEY=VALUE flags in order.
type tagList struct {
	tags *raster.Tags
}

func (l tagList) String() string {
	if l.tags == nil {
		return ""
	}
	parts := make([]string, 0, len(*l.tags))
	for _, tag := range *l.tags {
		parts = append(parts, tag.Key+"="+tag.Value)
	}
	return strings.Join(parts, ",")
}

func (l tagList) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("tag must be KEY=VALUE, got %q", value)
	}
	*l.tags = l.tags.Set(strings.TrimSpace(key), val)
	return nil
}

func parseConvertFlags(args []string, stderr io.Writer) (convertOptions, error) {
	var opts convertOptions
	var llc, urc, obsDate string

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", "", "Input image (.npy, .asc, or any GDAL-readable raster)")
	fs.StringVar(&opts.out, "out", "", "Output GeoTIFF path")
	fs.StringVar(&llc, "llc", "", "Lower-left corner as a,b[,c]")
	fs.StringVar(&urc, "urc", "", "Upper-right corner as a,b[,c]")
	fs.BoolVar(&opts.lonLat, "lonlat", false, "Corners are lon,lat[,h] instead of p,q[,r]")
	fs.StringVar(&opts.station, "station", station.DefaultStation, "Station whose local frame the corners use")
	fs.StringVar(&opts.stations, "stations", os.Getenv(StationsEnv), "JSON station table merged over the built-in one")
	fs.StringVar(&obsDate, "obsdate", "", `Observation date, "2006-01-02 15:04:05" or RFC 3339`)
	fs.Var(tagList{tags: &opts.tags}, "tag", "Extra metadata tag KEY=VALUE (repeatable)")
	fs.StringVar(&opts.footprint, "footprint", "", "Optional GeoJSON collection the raster footprint is merged into")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Optional Prometheus textfile to write conversion metrics to")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lofargeotiff convert --input <image> --out <file.tif> --llc a,b[,c] --urc a,b[,c]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return convertOptions{}, err
		}
		return convertOptions{}, usageError{err: err}
	}
	if fs.NArg() > 0 {
		return convertOptions{}, usagef("unexpected arguments: %v", fs.Args())
	}

	if opts.input == "" {
		return convertOptions{}, usagef("input is required")
	}
	if opts.out == "" {
		return convertOptions{}, usagef("out is required")
	}

	var err error
	if opts.llc, err = parseCorner("llc", llc); err != nil {
		return convertOptions{}, err
	}
	if opts.urc, err = parseCorner("urc", urc); err != nil {
		return convertOptions{}, err
	}
	if obsDate != "" {
		if opts.obsDate, err = parseObsDate(obsDate); err != nil {
			return convertOptions{}, err
		}
	}

	return opts, nil
}

func parseCorner(name, value string) (raster.Corner, error) {
	if value == "" {
		return raster.Corner{}, usagef("%s is required", name)
	}
	parts := strings.Split(value, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return raster.Corner{}, usagef("%s: %q is not a number", name, part)
		}
		values = append(values, v)
	}
	corner, err := raster.CornerFromSlice(values)
	if err != nil {
		return raster.Corner{}, usagef("%s: %v", name, err)
	}
	return corner, nil
}

func parseObsDate(value string) (time.Time, error) {
	for _, layout := range []string{raster.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, usagef("obsdate %q must be %q or RFC 3339", value, raster.DateLayout)
}

func runConvert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseConvertFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := logging.FromEnv()

	table, err := loadStations(opts.stations, logger)
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if opts.metricsFile != "" {
		defer func() {
			if err := collector.WriteTextfile(opts.metricsFile); err != nil {
				logger.Warn("metrics textfile not written", "path", opts.metricsFile, "err", err)
			}
		}()
	}

	img, err := imagefile.Load(ctx, opts.input)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.input, err)
	}
	logger.Debug("image loaded", "path", opts.input, "shape", img.Shape(), "dtype", img.DataType())

	if err := ensureOutputDir(opts.out); err != nil {
		return err
	}

	writer := raster.NewGTiffWriter()
	writer.Logger = logger
	g := raster.NewGeoreferencer(station.NewTransformer(table), writer, logger).
		WithObserver(collector)
	res, err := img.Georeference(ctx, g, opts.out, opts.llc, opts.urc, raster.Options{
		AsLocalFrame:    !opts.lonLat,
		Station:         opts.station,
		ObservationDate: opts.obsDate,
		Tags:            opts.tags,
	})
	if err != nil {
		return err
	}

	if opts.footprint != "" {
		fc, err := geojson.AppendFootprints(opts.footprint, []raster.Result{res})
		if err != nil {
			return err
		}
		logger.Debug("footprint written", "path", opts.footprint, "features", len(fc.Features))
	}

	return writeConvertSummary(stdout, res)
}

func loadStations(path string, logger *slog.Logger) (*station.Table, error) {
	table := station.DefaultTable()
	if path == "" {
		return table, nil
	}
	extra, err := station.LoadTable(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("station table loaded", "path", path, "stations", extra.Len())
	return table.Merge(extra), nil
}

func ensureOutputDir(outPath string) error {
	dir := filepath.Dir(outPath)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func writeConvertSummary(w io.Writer, res raster.Result) error {
	gt := res.Spec.Transform.GDAL()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"path", res.Path},
		{"size", fmt.Sprintf("%dx%d", res.Spec.Width, res.Spec.Height)},
		{"dtype", res.Spec.DataType},
		{"llc", res.LLC.String()},
		{"urc", res.URC.String()},
		{"flipped", strconv.FormatBool(res.Flipped)},
		{"pixels", fmt.Sprintf("n=%d min=%g max=%g mean=%g std=%g",
			res.Stats.Count, res.Stats.Min, res.Stats.Max, res.Stats.Mean, res.Stats.Std)},
		{"geotransform", formatFloats(gt[:])},
	}
	for _, tag := range res.Tags {
		rows = append(rows, [2]string{"tag " + tag.Key, tag.Value})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', 12, 64)
	}
	return strings.Join(parts, ", ")
}
