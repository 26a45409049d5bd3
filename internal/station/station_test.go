package station

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lofargeotiff/internal/geo"
)

const (
	degEps    = 1e-7
	heightEps = 1e-3
)

func TestNewLocal(t *testing.T) {
	l, err := NewLocal(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Local{P: 1, Q: 2, R: 0}, l)

	l, err = NewLocal(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, Local{P: 1, Q: 2, R: 3}, l)

	_, err = NewLocal(1)
	require.Error(t, err)
	_, err = NewLocal(1, 2, 3, 4)
	require.Error(t, err)
}

func TestToGeodeticOriginIsPhaseCentre(t *testing.T) {
	tr := NewTransformer(nil)

	got, err := tr.ToGeodetic(Local{}, DefaultStation)
	require.NoError(t, err)

	want, err := geo.XYZToGeodetic(geo.Cartesian{X: 3826577.462, Y: 461022.624, Z: 5064892.526})
	require.NoError(t, err)

	assert.InDelta(t, want.LonDeg, got.LonDeg, degEps)
	assert.InDelta(t, want.LatDeg, got.LatDeg, degEps)
	assert.InDelta(t, want.HeightM, got.HeightM, heightEps)
	assert.InDelta(t, 6.8698328362, got.LonDeg, degEps)
	assert.InDelta(t, 52.9151189680, got.LatDeg, degEps)
}

func TestToGeodeticCorners(t *testing.T) {
	tr := NewTransformer(DefaultTable())

	tests := []struct {
		name string
		pqr  Local
		want geo.Geodetic
	}{
		{
			name: "lower left",
			pqr:  Local{P: -200, Q: -200},
			want: geo.Geodetic{LonDeg: 6.8668598505, LatDeg: 52.9133217433, HeightM: 49.328450},
		},
		{
			name: "upper right",
			pqr:  Local{P: 200, Q: 200},
			want: geo.Geodetic{LonDeg: 6.8728060681, LatDeg: 52.9169161177, HeightM: 49.384140},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.ToGeodetic(tt.pqr, DefaultStation)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.LonDeg, got.LonDeg, degEps)
			assert.InDelta(t, tt.want.LatDeg, got.LatDeg, degEps)
			assert.InDelta(t, tt.want.HeightM, got.HeightM, heightEps)
		})
	}
}

func TestToETRSAppliesRotation(t *testing.T) {
	frame, err := NewFrame("AXES",
		[][]float64{
			{0, -1, 0},
			{1, 0, 0},
			{0, 0, 1},
		},
		geo.Cartesian{X: 10, Y: 20, Z: 30},
	)
	require.NoError(t, err)

	got := frame.ToETRS(Local{P: 1, Q: 2, R: 3})
	assert.Equal(t, geo.Cartesian{X: 8, Y: 21, Z: 33}, got)
}

func TestUnknownStation(t *testing.T) {
	tr := NewTransformer(nil)

	_, err := tr.ToGeodetic(Local{}, "RS999HBA")
	require.Error(t, err)

	var unknown *UnknownStationError
	require.True(t, errors.As(err, &unknown), "expected UnknownStationError, got %T", err)
	assert.Equal(t, "RS999HBA", unknown.Name)
}

func TestNewFrameValidates(t *testing.T) {
	centre := geo.Cartesian{X: 1, Y: 2, Z: 3}

	_, err := NewFrame("", [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, centre)
	assert.Error(t, err)

	_, err = NewFrame("X", [][]float64{{1, 0, 0}, {0, 1, 0}}, centre)
	assert.Error(t, err)

	_, err = NewFrame("X", [][]float64{{1, 0}, {0, 1, 0}, {0, 0, 1}}, centre)
	assert.Error(t, err)

	_, err = NewFrame("X", [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, geo.Cartesian{X: math.NaN()})
	assert.Error(t, err)
}

func TestRotationIsCopy(t *testing.T) {
	frame, err := DefaultTable().Lookup(DefaultStation)
	require.NoError(t, err)

	rot := frame.Rotation()
	rot.Set(0, 0, 42)

	again, err := DefaultTable().Lookup(DefaultStation)
	require.NoError(t, err)
	assert.InDelta(t, -0.11959511, again.Rotation().At(0, 0), 1e-12)
	assert.InDelta(t, -0.11959511, frame.Rotation().At(0, 0), 1e-12)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.json")
	writeFile(t, path, `{
  "stations": {
    "CS002LBA": {
      "phase_centre": [3826577.462, 461022.624, 5064892.526],
      "pqr_to_etrs": [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
    },
    "EQUATOR": {
      "phase_centre_geodetic": [0, 0, 0],
      "pqr_to_etrs": [[0, 0, 1], [1, 0, 0], [0, 1, 0]]
    }
  }
}`)

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS002LBA", "EQUATOR"}, table.Names())

	eq, err := table.Lookup("EQUATOR")
	require.NoError(t, err)
	assert.InDelta(t, geo.WGS84A, eq.PhaseCentre.X, 1e-6)

	g, err := NewTransformer(table).ToGeodetic(Local{}, "EQUATOR")
	require.NoError(t, err)
	assert.InDelta(t, 0, g.LatDeg, degEps)
	assert.InDelta(t, 0, g.HeightM, heightEps)

	merged := DefaultTable().Merge(table)
	assert.Equal(t, 2, merged.Len())
	cs, err := merged.Lookup("CS002LBA")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cs.Rotation().At(0, 0), "loaded entry should override the default")
}

func TestLoadTableRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{name: "wrong extension", file: "stations.yaml", contents: "{}"},
		{name: "invalid json", file: "bad.json", contents: "{"},
		{name: "no stations", file: "empty.json", contents: `{"stations": {}}`},
		{
			name:     "short centre",
			file:     "short.json",
			contents: `{"stations": {"A": {"phase_centre": [1, 2], "pqr_to_etrs": [[1,0,0],[0,1,0],[0,0,1]]}}}`,
		},
		{
			name:     "both centres",
			file:     "both.json",
			contents: `{"stations": {"A": {"phase_centre": [1, 2, 3], "phase_centre_geodetic": [1, 2, 3], "pqr_to_etrs": [[1,0,0],[0,1,0],[0,0,1]]}}}`,
		},
		{
			name:     "bad rotation",
			file:     "rot.json",
			contents: `{"stations": {"A": {"phase_centre": [1, 2, 3], "pqr_to_etrs": [[1,0,0],[0,1,0]]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.contents)
			_, err := LoadTable(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestTransformerConcurrentReads(t *testing.T) {
	tr := NewTransformer(nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tr.ToGeodetic(Local{P: float64(i), Q: float64(-i)}, DefaultStation)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
