// Package geo converts between Earth-centred Cartesian coordinates and
// geodetic longitude, latitude and height on the WGS-84 ellipsoid.
package geo

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters.
const (
	WGS84A  = 6378137.0             // semi-major axis (meters)
	WGS84F  = 1.0 / 298.257223563   // flattening
	WGS84E2 = WGS84F * (2 - WGS84F) // first eccentricity squared
)

const (
	// LatitudeTolerance is the step size (radians) at which the latitude
	// iteration is considered settled.
	LatitudeTolerance = 1.6e-12

	// MaxIterations bounds the latitude iteration.
	MaxIterations = 100
)

// Cartesian is a position in an Earth-centred frame (ETRS/ECEF), in meters.
type Cartesian struct {
	X, Y, Z float64
}

// Geodetic is a position on the WGS-84 ellipsoid.
type Geodetic struct {
	LonDeg  float64
	LatDeg  float64
	HeightM float64
}

func (g Geodetic) String() string {
	return fmt.Sprintf("lon=%.9f lat=%.9f h=%.3fm", g.LonDeg, g.LatDeg, g.HeightM)
}

// ConvergenceError reports a latitude iteration that did not settle.
type ConvergenceError struct {
	Input      Cartesian
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("latitude did not converge for (%g, %g, %g) after %d iterations (residual %g rad)",
		e.Input.X, e.Input.Y, e.Input.Z, e.Iterations, e.Residual)
}

// NormalizedEarthRadius returns the radius of curvature in the prime vertical
// divided by the semi-major axis, for a latitude in radians.
func NormalizedEarthRadius(latRad float64) float64 {
	cosLat := math.Cos(latRad)
	sinLat := math.Sin(latRad)
	b := 1.0 - WGS84F
	return 1.0 / math.Sqrt(cosLat*cosLat+b*b*sinLat*sinLat)
}

// XYZToGeodetic converts Earth-centred coordinates (meters) to geodetic
// longitude and latitude (degrees) and ellipsoidal height (meters).
//
// Latitude is found by fixed-point iteration on the geocentric latitude.
// It usually settles in about five steps for points near the surface.
func XYZToGeodetic(xyz Cartesian) (Geodetic, error) {
	lon := math.Atan2(xyz.Y, xyz.X)
	r := math.Sqrt(xyz.X*xyz.X + xyz.Y*xyz.Y)

	phi := math.Atan2(xyz.Z, r)
	residual := math.Inf(1)
	iterations := 0
	for residual > LatitudeTolerance {
		if iterations == MaxIterations {
			return Geodetic{}, &ConvergenceError{Input: xyz, Iterations: iterations, Residual: residual}
		}
		next := math.Atan2(xyz.Z+WGS84E2*WGS84A*NormalizedEarthRadius(phi)*math.Sin(phi), r)
		iterations++
		if math.IsNaN(next) {
			return Geodetic{}, &ConvergenceError{Input: xyz, Iterations: iterations, Residual: math.NaN()}
		}
		residual = math.Abs(next - phi)
		phi = next
	}

	sinPhi := math.Sin(phi)
	height := r*math.Cos(phi) + xyz.Z*sinPhi - WGS84A*math.Sqrt(1.0-WGS84E2*sinPhi*sinPhi)

	// longitude lies in (-180, 180]
	if lon == -math.Pi {
		lon = math.Pi
	}

	return Geodetic{
		LonDeg:  lon * 180.0 / math.Pi,
		LatDeg:  phi * 180.0 / math.Pi,
		HeightM: height,
	}, nil
}

// GeodeticToXYZ converts a geodetic position to Earth-centred coordinates
// in meters.
func GeodeticToXYZ(g Geodetic) Cartesian {
	lat := g.LatDeg * math.Pi / 180.0
	lon := g.LonDeg * math.Pi / 180.0

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// Radius of curvature in the prime vertical.
	n := WGS84A / math.Sqrt(1-WGS84E2*sinLat*sinLat)

	return Cartesian{
		X: (n + g.HeightM) * cosLat * cosLon,
		Y: (n + g.HeightM) * cosLat * sinLon,
		Z: (n*(1-WGS84E2) + g.HeightM) * sinLat,
	}
}
