package station

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lofargeotiff/internal/geo"
)

// maxTableFileSize caps station files read by LoadTable.
const maxTableFileSize = 1 * 1024 * 1024

// UnknownStationError is returned when a station is absent from a Table.
type UnknownStationError struct {
	Name string
}

func (e *UnknownStationError) Error() string {
	return fmt.Sprintf("unknown station %q", e.Name)
}

// Table is a read-only lookup of station frames. It has no mutators and is
// safe for concurrent use.
type Table struct {
	frames map[string]Frame
}

// NewTable builds a table from frames. Later frames with the same name win.
func NewTable(frames ...Frame) *Table {
	t := &Table{frames: make(map[string]Frame, len(frames))}
	for _, f := range frames {
		t.frames[f.Name] = f
	}
	return t
}

// DefaultTable holds the built-in CS002LBA frame.
func DefaultTable() *Table {
	frame, err := NewFrame(DefaultStation,
		[][]float64{
			{-0.11959511, -0.79195445, 0.598753},
			{0.99282275, -0.09541868, 0.072099},
			{0.0000331, 0.60307829, 0.797682},
		},
		geo.Cartesian{X: 3826577.462, Y: 461022.624, Z: 5064892.526},
	)
	if err != nil {
		panic(err)
	}
	return NewTable(frame)
}

// Lookup returns the frame for name.
func (t *Table) Lookup(name string) (Frame, error) {
	f, ok := t.frames[name]
	if !ok {
		return Frame{}, &UnknownStationError{Name: name}
	}
	return f, nil
}

// Names returns the station names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.frames))
	for name := range t.frames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stations.
func (t *Table) Len() int {
	return len(t.frames)
}

// Merge returns a new table with the frames of both; entries of other win.
func (t *Table) Merge(other *Table) *Table {
	merged := &Table{frames: make(map[string]Frame, len(t.frames)+len(other.frames))}
	for name, f := range t.frames {
		merged.frames[name] = f
	}
	for name, f := range other.frames {
		merged.frames[name] = f
	}
	return merged
}

type tableFile struct {
	Stations map[string]frameEntry `json:"stations"`
}

type frameEntry struct {
	PhaseCentre         []float64   `json:"phase_centre,omitempty"`
	PhaseCentreGeodetic []float64   `json:"phase_centre_geodetic,omitempty"`
	PQRToETRS           [][]float64 `json:"pqr_to_etrs"`
}

// LoadTable reads a JSON station file. The file must have a .json extension
// and be at most 1 MiB.
func LoadTable(path string) (*Table, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("station file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat station file: %w", err)
	}
	if info.Size() > maxTableFileSize {
		return nil, fmt.Errorf("station file too large: %d bytes (max %d)", info.Size(), maxTableFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read station file: %w", err)
	}

	var payload tableFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse station file: %w", err)
	}
	if len(payload.Stations) == 0 {
		return nil, fmt.Errorf("station file %s has no stations", cleanPath)
	}

	frames := make([]Frame, 0, len(payload.Stations))
	for name, entry := range payload.Stations {
		frame, err := entry.frame(name)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	return NewTable(frames...), nil
}

func (e frameEntry) frame(name string) (Frame, error) {
	var centre geo.Cartesian
	switch {
	case len(e.PhaseCentre) > 0 && len(e.PhaseCentreGeodetic) > 0:
		return Frame{}, fmt.Errorf("station %s: give phase_centre or phase_centre_geodetic, not both", name)
	case len(e.PhaseCentre) == 3:
		centre = geo.Cartesian{X: e.PhaseCentre[0], Y: e.PhaseCentre[1], Z: e.PhaseCentre[2]}
	case len(e.PhaseCentreGeodetic) == 3:
		centre = geo.GeodeticToXYZ(geo.Geodetic{
			LonDeg:  e.PhaseCentreGeodetic[0],
			LatDeg:  e.PhaseCentreGeodetic[1],
			HeightM: e.PhaseCentreGeodetic[2],
		})
	default:
		return Frame{}, fmt.Errorf("station %s: phase centre needs 3 values", name)
	}

	return NewFrame(name, e.PQRToETRS, centre)
}
