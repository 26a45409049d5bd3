// Package station maps station-centric pqr coordinates into the Earth-centred
// ETRS frame and on to geodetic positions.
//
// A station frame is a pqr→ETRS rotation plus the ETRS position of the
// station's phase centre, which is the origin of its pqr frame.
package station

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"lofargeotiff/internal/geo"
)

// DefaultStation is the reference station used when none is given.
const DefaultStation = "CS002LBA"

// Local is a position in a station's pqr frame, in meters.
type Local struct {
	P, Q, R float64
}

// NewLocal builds a pqr coordinate from 2 or 3 components. A 2-component
// input is a ground-plane point with R = 0.
func NewLocal(components ...float64) (Local, error) {
	switch len(components) {
	case 2:
		return Local{P: components[0], Q: components[1]}, nil
	case 3:
		return Local{P: components[0], Q: components[1], R: components[2]}, nil
	default:
		return Local{}, fmt.Errorf("pqr needs 2 or 3 components, got %d", len(components))
	}
}

func (l Local) vec() *mat.VecDense {
	return mat.NewVecDense(3, []float64{l.P, l.Q, l.R})
}

// Frame is the pqr→ETRS transform of one station.
type Frame struct {
	Name        string
	PhaseCentre geo.Cartesian
	rotation    *mat.Dense
}

// NewFrame validates and copies a 3×3 row-major rotation matrix.
func NewFrame(name string, rotation [][]float64, phaseCentre geo.Cartesian) (Frame, error) {
	if name == "" {
		return Frame{}, fmt.Errorf("station name is empty")
	}
	if len(rotation) != 3 {
		return Frame{}, fmt.Errorf("station %s: rotation needs 3 rows, got %d", name, len(rotation))
	}

	data := make([]float64, 0, 9)
	for i, row := range rotation {
		if len(row) != 3 {
			return Frame{}, fmt.Errorf("station %s: rotation row %d needs 3 values, got %d", name, i, len(row))
		}
		data = append(data, row...)
	}
	for _, v := range append(data, phaseCentre.X, phaseCentre.Y, phaseCentre.Z) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, fmt.Errorf("station %s: non-finite frame value", name)
		}
	}

	return Frame{
		Name:        name,
		PhaseCentre: phaseCentre,
		rotation:    mat.NewDense(3, 3, data),
	}, nil
}

// Rotation returns a copy of the pqr→ETRS rotation.
func (f Frame) Rotation() *mat.Dense {
	return mat.DenseCopyOf(f.rotation)
}

// ToETRS computes rotation · pqr + phase centre.
func (f Frame) ToETRS(pqr Local) geo.Cartesian {
	var v mat.VecDense
	v.MulVec(f.rotation, pqr.vec())

	return geo.Cartesian{
		X: v.AtVec(0) + f.PhaseCentre.X,
		Y: v.AtVec(1) + f.PhaseCentre.Y,
		Z: v.AtVec(2) + f.PhaseCentre.Z,
	}
}
