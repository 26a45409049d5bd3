package geojson

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	featureCollectionType = "FeatureCollection"
	featureType           = "Feature"
	geometryPolygonType   = "Polygon"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

func WriteFeatureCollection(path string, fc FeatureCollection) error {
	if fc.Type == "" {
		fc.Type = featureCollectionType
	}
	for i := range fc.Features {
		if fc.Features[i].Type == "" {
			fc.Features[i].Type = featureType
		}
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

func ReadFeatureCollection(path string) (FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeatureCollection{}, fmt.Errorf("read geojson: %w", err)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return FeatureCollection{}, fmt.Errorf("decode geojson: %w", err)
	}
	return fc, nil
}
