package geojson

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"lofargeotiff/internal/raster"
)

func testResult() raster.Result {
	return raster.Result{
		Path: "out.tif",
		Spec: raster.Spec{
			Driver:    "GTiff",
			Width:     4,
			Height:    2,
			Bands:     1,
			DataType:  "Float64",
			CRS:       "EPSG:4326",
			Transform: raster.Affine{A: 0.5, C: 9.75, E: -1, F: 50.5},
		},
		Tags: raster.Tags{{Key: "obsdate", Value: "2016-02-12 08:00:00"}, {Key: "path", Value: "ignored"}},
	}
}

func TestBuildFootprintFC(t *testing.T) {
	fc := BuildFootprintFC([]raster.Result{testResult()})

	if fc.Type != featureCollectionType {
		t.Fatalf("expected type %q, got %q", featureCollectionType, fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}

	feature := fc.Features[0]
	if feature.Geometry.Type != geometryPolygonType {
		t.Fatalf("expected polygon, got %q", feature.Geometry.Type)
	}
	want := [][][]float64{{{9.75, 48.5}, {11.75, 48.5}, {11.75, 50.5}, {9.75, 50.5}, {9.75, 48.5}}}
	if !reflect.DeepEqual(feature.Geometry.Coordinates, want) {
		t.Fatalf("unexpected coordinates: %v", feature.Geometry.Coordinates)
	}
	if feature.Properties["obsdate"] != "2016-02-12 08:00:00" {
		t.Fatalf("expected obsdate property, got %v", feature.Properties)
	}
	if feature.Properties["path"] != "out.tif" {
		t.Fatalf("expected tags not to shadow path, got %v", feature.Properties["path"])
	}
}

func TestWriteFeatureCollectionDefaultsTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.geojson")
	fc := FeatureCollection{Features: []Feature{{Geometry: Geometry{Type: geometryPolygonType, Coordinates: [][][]float64{}}}}}

	if err := WriteFeatureCollection(path, fc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := ReadFeatureCollection(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Type != featureCollectionType || got.Features[0].Type != featureType {
		t.Fatalf("expected default types, got %+v", got)
	}
}

func TestAppendFootprintsMergesByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprints.geojson")

	first := testResult()
	if _, err := AppendFootprints(path, []raster.Result{first}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second := testResult()
	second.Path = "other.tif"
	rewritten := testResult()
	rewritten.Spec.Width = 8
	fc, err := AppendFootprints(path, []raster.Result{second, rewritten})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	got, err := ReadFeatureCollection(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Features) != 2 {
		t.Fatalf("expected 2 stored features, got %d", len(got.Features))
	}
	if got.Features[0].Properties["path"] != "out.tif" || got.Features[0].Properties["width"] != float64(8) {
		t.Fatalf("expected out.tif replaced in place, got %v", got.Features[0].Properties)
	}
	if got.Features[1].Properties["path"] != "other.tif" {
		t.Fatalf("expected other.tif appended, got %v", got.Features[1].Properties)
	}
}

func TestAppendFootprintsRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprints.geojson")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := AppendFootprints(path, []raster.Result{testResult()}); err == nil {
		t.Fatalf("expected decode error, got nil")
	}
}
