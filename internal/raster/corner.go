package raster

import (
	"fmt"

	"lofargeotiff/internal/geo"
	"lofargeotiff/internal/station"
)

// Corner is an image corner given either as (lon, lat[, h]) in degrees and
// metres or as (p, q[, r]) in a station's local frame.
type Corner struct {
	X, Y, Z float64
	HasZ    bool
}

// CornerFromSlice builds a Corner from 2 or 3 components.
func CornerFromSlice(v []float64) (Corner, error) {
	switch len(v) {
	case 2:
		return Corner{X: v[0], Y: v[1]}, nil
	case 3:
		return Corner{X: v[0], Y: v[1], Z: v[2], HasZ: true}, nil
	default:
		return Corner{}, fmt.Errorf("corner needs 2 or 3 components, got %d", len(v))
	}
}

func (c Corner) local() station.Local {
	return station.Local{P: c.X, Q: c.Y, R: c.Z}
}

func (c Corner) geodetic() geo.Geodetic {
	return geo.Geodetic{LonDeg: c.X, LatDeg: c.Y, HeightM: c.Z}
}
