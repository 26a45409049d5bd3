package raster

// Affine maps pixel (col, row) to coordinates:
// x = A*col + B*row + C, y = D*col + E*row + F.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// GDAL returns the transform in GDAL geotransform order.
func (a Affine) GDAL() [6]float64 {
	return [6]float64{a.C, a.A, a.B, a.F, a.D, a.E}
}

// AffineFromGDAL is the inverse of GDAL.
func AffineFromGDAL(gt [6]float64) Affine {
	return Affine{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}
}

// Apply converts pixel coordinates to lon/lat.
func (a Affine) Apply(col, row float64) (lon, lat float64) {
	lon = a.C + col*a.A + row*a.B
	lat = a.F + col*a.D + row*a.E
	return lon, lat
}

// Bounds returns the lon/lat box spanned by the outer pixel edges of a
// width x height raster as {minLon, minLat, maxLon, maxLat}.
func (a Affine) Bounds(width, height int) [4]float64 {
	corners := [][2]float64{
		{0, 0},
		{float64(width), 0},
		{0, float64(height)},
		{float64(width), float64(height)},
	}
	lon, lat := a.Apply(0, 0)
	box := [4]float64{lon, lat, lon, lat}
	for _, c := range corners[1:] {
		lon, lat := a.Apply(c[0], c[1])
		box[0] = min(box[0], lon)
		box[1] = min(box[1], lat)
		box[2] = max(box[2], lon)
		box[3] = max(box[3], lat)
	}
	return box
}
