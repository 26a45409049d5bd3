package raster

import "lofargeotiff/internal/station"

// Options controls how corners are interpreted and which tags are written.
type Options struct {
	// AsLocalFrame treats corners as (p, q[, r]) in Station's frame.
	AsLocalFrame bool
	Station      string
	// ObservationDate is a time.Time, a preformatted string, or nil.
	ObservationDate any
	Tags            Tags
}

// DefaultOptions returns options for pqr corners in the default station.
func DefaultOptions() Options {
	return Options{
		AsLocalFrame: true,
		Station:      station.DefaultStation,
	}
}
