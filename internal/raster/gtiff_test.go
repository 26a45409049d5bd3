package raster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	os.Setenv("LOFARGEOTIFF_GDAL_MODE", "local")
	os.Exit(m.Run())
}

// fakeTranslate writes its arguments followed by the source VRT into the
// destination, standing in for gdal_translate.
const fakeTranslate = `#!/bin/sh
for a; do src=$dst; dst=$a; done
{ printf '%s\n' "$@"; cat "$src"; } > "$dst"
`

func writeScript(t *testing.T, path, contents string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func prependPath(t *testing.T, dir string) {
	t.Helper()
	old := os.Getenv("PATH")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+old)
}

func TestGTiffWriterWritesThroughTranslate(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, filepath.Join(binDir, "gdal_translate"), fakeTranslate)
	prependPath(t, binDir)

	outDir := t.TempDir()
	out := filepath.Join(outDir, "image.tif")
	g := NewGeoreferencer(nil, NewGTiffWriter(), nil)
	img, err := NewImage([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	opts := Options{
		ObservationDate: time.Date(2016, 2, 12, 8, 0, 0, 0, time.UTC),
		Tags:            Tags{{Key: "Author", Value: "Jan"}},
	}
	if _, err := Write(context.Background(), g, out, img, Corner{X: 10, Y: 50}, Corner{X: 12, Y: 48}, opts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected output file, got %v", err)
	}
	text := string(data)

	wantArgs := strings.Join([]string{
		"-of", "GTiff",
		"-a_srs", "EPSG:4326",
		"-mo", "TIFFTAG_DATETIME=2016-02-12 08:00:00",
		"-mo", "obsdate=2016-02-12 08:00:00",
		"-mo", "Author=Jan",
	}, "\n")
	if !strings.HasPrefix(text, wantArgs+"\n") {
		t.Fatalf("unexpected gdal_translate arguments:\n%s", text)
	}
	for _, want := range []string{
		`<GeoTransform>9.75, 0.5, 0, 50.5, 0, -1</GeoTransform>`,
		`dataType="Float64"`,
		`<LineOffset>32</LineOffset>`,
		`EPSG:4326</SRS>`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected staged vrt to contain %q, got:\n%s", want, text)
		}
	}

	assertNoStaging(t, outDir)
}

func TestGTiffWriterFailureLeavesNothing(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, filepath.Join(binDir, "gdal_translate"), "#!/bin/sh\necho 'ERROR 1: boom' >&2\nexit 1\n")
	prependPath(t, binDir)

	outDir := t.TempDir()
	out := filepath.Join(outDir, "image.tif")
	g := NewGeoreferencer(nil, NewGTiffWriter(), nil)
	img := rowIndexImage(t, 2, 2)

	_, err := Write(context.Background(), g, out, img, Corner{X: 1, Y: 1}, Corner{X: 2, Y: 2}, Options{})
	var writeErr *RasterWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected RasterWriteError, got %v", err)
	}
	if writeErr.Op != "close" {
		t.Fatalf("expected close to fail, got %q", writeErr.Op)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, got %v", err)
	}
	assertNoStaging(t, outDir)
}

func TestGTiffWriterUnknownStationCreatesNothing(t *testing.T) {
	outDir := t.TempDir()
	g := NewGeoreferencer(nil, NewGTiffWriter(), nil)
	img := rowIndexImage(t, 2, 2)

	_, err := Write(context.Background(), g, filepath.Join(outDir, "image.tif"), img,
		Corner{X: -1, Y: -1}, Corner{X: 1, Y: 1}, Options{AsLocalFrame: true, Station: "NOPE"})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty output dir, got %d entries", len(entries))
	}
}

func TestGTiffWriterRejectsWrongBandSize(t *testing.T) {
	outDir := t.TempDir()
	w := NewGTiffWriter()
	spec := Spec{Driver: DriverGTiff, Width: 2, Height: 2, Bands: 1, DataType: "Int16", CRS: CRSWGS84}

	ds, err := w.Create(context.Background(), filepath.Join(outDir, "x.tif"), spec)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := ds.Write(1, make([]byte, 3)); err == nil {
		t.Fatalf("expected error for short band")
	}
	if err := ds.Write(2, make([]byte, 8)); err == nil {
		t.Fatalf("expected error for band 2")
	}
	if err := ds.Abort(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	assertNoStaging(t, outDir)

	if _, err := w.Create(context.Background(), "x.tif", Spec{Driver: "PNG", Bands: 1, DataType: "Byte"}); err == nil {
		t.Fatalf("expected error for PNG driver")
	}
}

func TestGTiffWriterCleanupFailureKeepsRaster(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, filepath.Join(binDir, "gdal_translate"), fakeTranslate)
	prependPath(t, binDir)

	orig := removeAll
	removeAll = func(string) error { return errors.New("device busy") }
	t.Cleanup(func() { removeAll = orig })

	outDir := t.TempDir()
	out := filepath.Join(outDir, "image.tif")
	g := NewGeoreferencer(nil, NewGTiffWriter(), nil)
	img := rowIndexImage(t, 2, 2)

	if _, err := Write(context.Background(), g, out, img, Corner{X: 1, Y: 2}, Corner{X: 2, Y: 1}, Options{}); err != nil {
		t.Fatalf("expected no error once the raster is in place, got %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file, got %v", err)
	}
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, ".tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected staging dir to be removed, got %v", err)
	}
}
