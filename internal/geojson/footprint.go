package geojson

import (
	"errors"
	"io/fs"

	"lofargeotiff/internal/raster"
)

// BuildFootprintFC builds one polygon feature per written raster, tracing
// its outer pixel edges counter-clockwise.
func BuildFootprintFC(results []raster.Result) FeatureCollection {
	features := make([]Feature, 0, len(results))
	for _, res := range results {
		features = append(features, footprintFeature(res))
	}

	return FeatureCollection{
		Type:     featureCollectionType,
		Features: features,
	}
}

// AppendFootprints merges the footprints of results into the collection
// at path, creating it when missing. A feature whose path property matches
// a new result is replaced in place.
func AppendFootprints(path string, results []raster.Result) (FeatureCollection, error) {
	fc, err := ReadFeatureCollection(path)
	if errors.Is(err, fs.ErrNotExist) {
		fc, err = FeatureCollection{Type: featureCollectionType}, nil
	}
	if err != nil {
		return FeatureCollection{}, err
	}

	index := make(map[string]int, len(fc.Features))
	for i, f := range fc.Features {
		if p, ok := f.Properties["path"].(string); ok {
			index[p] = i
		}
	}
	for _, feature := range BuildFootprintFC(results).Features {
		p := feature.Properties["path"].(string)
		if i, ok := index[p]; ok {
			fc.Features[i] = feature
			continue
		}
		index[p] = len(fc.Features)
		fc.Features = append(fc.Features, feature)
	}

	if err := WriteFeatureCollection(path, fc); err != nil {
		return FeatureCollection{}, err
	}
	return fc, nil
}

func footprintFeature(res raster.Result) Feature {
	box := res.Bounds()
	ring := [][]float64{
		{box[0], box[1]},
		{box[2], box[1]},
		{box[2], box[3]},
		{box[0], box[3]},
		{box[0], box[1]},
	}

	props := map[string]any{
		"path":         res.Path,
		"width":        res.Spec.Width,
		"height":       res.Spec.Height,
		"dtype":        res.Spec.DataType,
		"crs":          res.Spec.CRS,
		"flipped":      res.Flipped,
		"geotransform": res.Spec.Transform.GDAL(),
	}
	for _, tag := range res.Tags {
		// tags never shadow the fixed keys
		if _, ok := props[tag.Key]; !ok {
			props[tag.Key] = tag.Value
		}
	}

	return Feature{
		Type: featureType,
		Geometry: Geometry{
			Type:        geometryPolygonType,
			Coordinates: [][][]float64{ring},
		},
		Properties: props,
	}
}
