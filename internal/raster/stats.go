package raster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the finite pixels of an image. Std is the population
// standard deviation.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Std   float64
}

// Summarize computes Stats over img, skipping NaN and infinite values.
func Summarize[T Numeric](img *Image[T]) Stats {
	values := make([]float64, 0, len(img.Pix))
	for _, v := range img.Pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return Stats{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	return Stats{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  mean,
		Std:   std,
	}
}
