package raster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lofargeotiff/internal/geo"
	"lofargeotiff/internal/station"
)

// Observer is notified once per Write with its duration and outcome.
type Observer interface {
	ObserveWrite(elapsed time.Duration, err error)
}

// Result describes a written raster.
type Result struct {
	Path    string
	Spec    Spec
	LLC     geo.Geodetic
	URC     geo.Geodetic
	Flipped bool
	Tags    Tags
	Stats   Stats
}

// Bounds returns {minLon, minLat, maxLon, maxLat} of the written raster.
func (r Result) Bounds() [4]float64 {
	return r.Spec.Transform.Bounds(r.Spec.Width, r.Spec.Height)
}

// Georeferencer turns pixel arrays plus two corners into georeferenced
// single-band rasters. It holds no mutable state and is safe for
// concurrent use.
type Georeferencer struct {
	transformer *station.Transformer
	writer      Writer
	logger      *slog.Logger
	observer    Observer
}

// NewGeoreferencer builds a Georeferencer. A nil transformer uses the
// default station table and a nil logger discards output.
func NewGeoreferencer(transformer *station.Transformer, writer Writer, logger *slog.Logger) *Georeferencer {
	if transformer == nil {
		transformer = station.NewTransformer(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Georeferencer{transformer: transformer, writer: writer, logger: logger}
}

// WithObserver returns a copy of g reporting to o.
func (g *Georeferencer) WithObserver(o Observer) *Georeferencer {
	cp := *g
	cp.observer = o
	return &cp
}

// Write georeferences img between the lower-left and upper-right corners
// and writes it to path as a single-band EPSG:4326 raster.
func Write[T Numeric](ctx context.Context, g *Georeferencer, path string, img *Image[T], llc, urc Corner, opts Options) (res Result, err error) {
	start := time.Now()
	if g.observer != nil {
		defer func() { g.observer.ObserveWrite(time.Since(start), err) }()
	}

	lowerLeft, upperRight, err := g.resolveCorners(llc, urc, opts)
	if err != nil {
		return Result{}, err
	}

	if img == nil {
		return Result{}, &InvalidImageShapeError{}
	}
	plane, err := img.Squeeze()
	if err != nil {
		return Result{}, err
	}

	flipped := false
	if lowerLeft.LatDeg < upperRight.LatDeg {
		lowerLeft.LatDeg, upperRight.LatDeg = upperRight.LatDeg, lowerLeft.LatDeg
		plane = plane.FlipRows()
		flipped = true
	}
	if lowerLeft.LonDeg > upperRight.LonDeg {
		g.logger.Warn("lower-left longitude exceeds upper-right longitude; keeping order",
			"path", path, "llc_lon", lowerLeft.LonDeg, "urc_lon", upperRight.LonDeg)
	}

	width, height := plane.Width(), plane.Height()
	lonRes := (upperRight.LonDeg - lowerLeft.LonDeg) / float64(width)
	latRes := (upperRight.LatDeg - lowerLeft.LatDeg) / float64(height)
	if lonRes == 0 || latRes == 0 {
		return Result{}, fmt.Errorf("write raster %s: %w", path, ErrDegenerateExtent)
	}

	tags, err := buildTags(opts.ObservationDate, opts.Tags)
	if err != nil {
		return Result{}, err
	}

	spec := Spec{
		Driver:   DriverGTiff,
		Width:    width,
		Height:   height,
		Bands:    1,
		DataType: DataTypeOf[T](),
		CRS:      CRSWGS84,
		Transform: Affine{
			A: lonRes,
			C: lowerLeft.LonDeg - lonRes/2,
			E: latRes,
			F: lowerLeft.LatDeg - latRes/2,
		},
	}

	if err := g.emit(ctx, path, spec, plane.Bytes(), tags); err != nil {
		return Result{}, err
	}

	g.logger.Info("raster written",
		"path", path, "width", width, "height", height, "dtype", spec.DataType,
		"flipped", flipped, "tags", len(tags))

	return Result{
		Path:    path,
		Spec:    spec,
		LLC:     lowerLeft,
		URC:     upperRight,
		Flipped: flipped,
		Tags:    tags,
		Stats:   Summarize(plane),
	}, nil
}

func (g *Georeferencer) resolveCorners(llc, urc Corner, opts Options) (geo.Geodetic, geo.Geodetic, error) {
	if !opts.AsLocalFrame {
		return llc.geodetic(), urc.geodetic(), nil
	}

	name := opts.Station
	if name == "" {
		name = station.DefaultStation
	}
	lowerLeft, err := g.transformer.ToGeodetic(llc.local(), name)
	if err != nil {
		return geo.Geodetic{}, geo.Geodetic{}, fmt.Errorf("lower-left corner: %w", err)
	}
	upperRight, err := g.transformer.ToGeodetic(urc.local(), name)
	if err != nil {
		return geo.Geodetic{}, geo.Geodetic{}, fmt.Errorf("upper-right corner: %w", err)
	}
	return lowerLeft, upperRight, nil
}

func (g *Georeferencer) emit(ctx context.Context, path string, spec Spec, pix []byte, tags Tags) error {
	ds, err := g.writer.Create(ctx, path, spec)
	if err != nil {
		return &RasterWriteError{Path: path, Op: "create", Err: err}
	}

	fail := func(op string, err error) error {
		if abortErr := ds.Abort(); abortErr != nil {
			g.logger.Warn("abort raster", "path", path, "err", abortErr)
		}
		return &RasterWriteError{Path: path, Op: op, Err: err}
	}

	if err := ds.Write(1, pix); err != nil {
		return fail("write band", err)
	}
	if err := ds.SetTags(tags); err != nil {
		return fail("set tags", err)
	}
	if err := ds.Close(ctx); err != nil {
		return fail("close", err)
	}
	return nil
}
