package raster

import (
	"context"
	"errors"
	"fmt"
)

// Output constants for every raster produced here.
const (
	DriverGTiff = "GTiff"
	CRSWGS84    = "EPSG:4326"
)

// ErrDegenerateExtent is returned when the corners span zero width or height.
var ErrDegenerateExtent = errors.New("corners span a zero-area extent")

// Spec describes the dataset handed to a Writer.
type Spec struct {
	Driver    string
	Width     int
	Height    int
	Bands     int
	DataType  string
	CRS       string
	Transform Affine
}

// Writer creates datasets.
type Writer interface {
	Create(ctx context.Context, path string, spec Spec) (Dataset, error)
}

// Dataset receives pixels and tags. Nothing is visible at the output path
// until Close succeeds, and a failed Close leaves nothing there. Abort
// discards the dataset.
type Dataset interface {
	// Write stores a band as row-major little-endian bytes.
	Write(band int, pix []byte) error
	SetTags(tags Tags) error
	Close(ctx context.Context) error
	Abort() error
}

// RasterWriteError wraps a failure of the raster writer.
type RasterWriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *RasterWriteError) Error() string {
	return fmt.Sprintf("write raster %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *RasterWriteError) Unwrap() error {
	return e.Err
}
