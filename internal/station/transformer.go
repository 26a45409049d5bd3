package station

import (
	"fmt"

	"lofargeotiff/internal/geo"
)

// Transformer converts pqr coordinates using a station table.
type Transformer struct {
	table *Table
}

// NewTransformer returns a Transformer over table. A nil table means
// DefaultTable.
func NewTransformer(table *Table) *Transformer {
	if table == nil {
		table = DefaultTable()
	}
	return &Transformer{table: table}
}

// Table returns the station table in use.
func (t *Transformer) Table() *Table {
	return t.table
}

// ToETRS maps pqr relative to station into the ETRS frame.
func (t *Transformer) ToETRS(pqr Local, station string) (geo.Cartesian, error) {
	frame, err := t.table.Lookup(station)
	if err != nil {
		return geo.Cartesian{}, err
	}
	return frame.ToETRS(pqr), nil
}

// ToGeodetic maps pqr relative to station to WGS-84 longitude, latitude
// and height.
func (t *Transformer) ToGeodetic(pqr Local, station string) (geo.Geodetic, error) {
	etrs, err := t.ToETRS(pqr, station)
	if err != nil {
		return geo.Geodetic{}, err
	}

	g, err := geo.XYZToGeodetic(etrs)
	if err != nil {
		return geo.Geodetic{}, fmt.Errorf("station %s: %w", station, err)
	}
	return g, nil
}
