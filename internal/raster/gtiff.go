package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"lofargeotiff/internal/gdal"
)

const (
	stagingDirName = ".tmp"
	rawBandName    = "band1.raw"
	vrtName        = "dataset.vrt"
	stagedName     = "staged.tif"
)

// GTiffWriter writes GeoTIFFs with gdal_translate from a VRT staged next to
// the output path.
type GTiffWriter struct {
	// CreationOptions are passed to gdal_translate as -co values.
	CreationOptions []string
	// Logger receives staging cleanup failures; nil uses slog.Default.
	Logger *slog.Logger
}

// removeAll is swapped in tests.
var removeAll = os.RemoveAll

// NewGTiffWriter returns a GTiffWriter with default creation options.
func NewGTiffWriter() *GTiffWriter {
	return &GTiffWriter{}
}

// Create prepares a staging directory for path.
func (w *GTiffWriter) Create(_ context.Context, path string, spec Spec) (Dataset, error) {
	if spec.Driver != DriverGTiff {
		return nil, fmt.Errorf("unsupported driver %q", spec.Driver)
	}
	if spec.Bands != 1 {
		return nil, fmt.Errorf("unsupported band count %d", spec.Bands)
	}
	if _, err := gdal.DataTypeSize(spec.DataType); err != nil {
		return nil, err
	}

	dir := filepath.Join(filepath.Dir(path), stagingDirName, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &gtiffDataset{
		logger:          logger,
		path:            path,
		dir:             dir,
		spec:            spec,
		creationOptions: w.CreationOptions,
	}, nil
}

type gtiffDataset struct {
	logger          *slog.Logger
	path            string
	dir             string
	spec            Spec
	creationOptions []string
	tags            Tags
	written         bool
	done            bool
}

func (d *gtiffDataset) Write(band int, pix []byte) error {
	if d.done {
		return errors.New("dataset is closed")
	}
	if band != 1 {
		return fmt.Errorf("band %d out of range", band)
	}
	size, err := gdal.DataTypeSize(d.spec.DataType)
	if err != nil {
		return err
	}
	if want := size * d.spec.Width * d.spec.Height; len(pix) != want {
		return fmt.Errorf("band needs %d bytes, got %d", want, len(pix))
	}

	f, err := os.Create(filepath.Join(d.dir, rawBandName))
	if err != nil {
		return fmt.Errorf("create band file: %w", err)
	}
	if _, err := f.Write(pix); err != nil {
		f.Close()
		return fmt.Errorf("write band file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close band file: %w", err)
	}

	d.written = true
	return nil
}

func (d *gtiffDataset) SetTags(tags Tags) error {
	if d.done {
		return errors.New("dataset is closed")
	}
	d.tags = append(Tags(nil), tags...)
	return nil
}

func (d *gtiffDataset) Close(ctx context.Context) error {
	if d.done {
		return errors.New("dataset is closed")
	}
	if !d.written {
		return errors.New("band 1 was never written")
	}

	band, err := gdal.NewRawBand(1, d.spec.DataType, d.spec.Width, rawBandName)
	if err != nil {
		return err
	}
	vrtPath := filepath.Join(d.dir, vrtName)
	err = gdal.WriteVRT(vrtPath, gdal.VRTDataset{
		RasterXSize:  d.spec.Width,
		RasterYSize:  d.spec.Height,
		SRS:          &gdal.VRTSRS{AxisMapping: "2,1", Value: d.spec.CRS},
		GeoTransform: gdal.GeoTransform(d.spec.Transform.GDAL()),
		Bands:        []gdal.VRTRawBand{band},
	})
	if err != nil {
		return err
	}

	metadata := make([]gdal.MetadataItem, 0, len(d.tags))
	for _, tag := range d.tags {
		metadata = append(metadata, gdal.MetadataItem{Key: tag.Key, Value: tag.Value})
	}

	staged := filepath.Join(d.dir, stagedName)
	err = gdal.Translate(ctx, vrtPath, staged, gdal.TranslateOptions{
		Format:          d.spec.Driver,
		OutputSRS:       d.spec.CRS,
		Metadata:        metadata,
		CreationOptions: d.creationOptions,
	})
	if err != nil {
		return err
	}
	if _, err := os.Stat(staged); err != nil {
		return fmt.Errorf("gdal_translate produced no output: %w", err)
	}

	if err := os.Rename(staged, d.path); err != nil {
		return fmt.Errorf("move raster into place: %w", err)
	}

	// The raster is complete at d.path from here on.
	d.done = true
	if err := d.cleanup(); err != nil {
		d.logger.Warn("staging dir left behind", "path", d.path, "dir", d.dir, "err", err)
	}
	return nil
}

func (d *gtiffDataset) Abort() error {
	d.done = true
	return d.cleanup()
}

// cleanup removes the staging directory and the shared .tmp parent once
// it is empty.
func (d *gtiffDataset) cleanup() error {
	if err := removeAll(d.dir); err != nil {
		return fmt.Errorf("remove staging dir: %w", err)
	}
	// Fails while other writers still stage there.
	_ = os.Remove(filepath.Dir(d.dir))
	return nil
}
