package imagefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sbinet/npyio"

	"lofargeotiff/internal/gdal"
	"lofargeotiff/internal/raster"
)

// Loaded is an image of any supported pixel type.
type Loaded interface {
	Shape() []int
	DataType() string
	// Georeference writes the image with g.
	Georeference(ctx context.Context, g *raster.Georeferencer, path string, llc, urc raster.Corner, opts raster.Options) (raster.Result, error)
}

type loaded[T raster.Numeric] struct {
	img *raster.Image[T]
}

// Wrap adapts an in-memory image to Loaded.
func Wrap[T raster.Numeric](img *raster.Image[T]) Loaded {
	return loaded[T]{img: img}
}

func (l loaded[T]) Shape() []int { return l.img.Shape }

func (l loaded[T]) DataType() string { return raster.DataTypeOf[T]() }

func (l loaded[T]) Georeference(ctx context.Context, g *raster.Georeferencer, path string, llc, urc raster.Corner, opts raster.Options) (raster.Result, error) {
	return raster.Write(ctx, g, path, l.img, llc, urc, opts)
}

// Load reads an image from path. Rows keep their storage order: row 0 is
// the first row in the file.
func Load(ctx context.Context, path string) (Loaded, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return loadNPY(path)
	case ".asc":
		return loadASC(path)
	default:
		return loadViaGDAL(ctx, path)
	}
}

func loadNPY(path string) (Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	descr := r.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("npy %s: fortran order is not supported", path)
	}
	shape := descr.Shape
	if len(shape) == 0 {
		return nil, &raster.InvalidImageShapeError{Shape: shape}
	}

	dtype := strings.TrimLeft(descr.Type, "<>|=")
	switch dtype {
	case "i1":
		return readNPY[int8](r, shape)
	case "u1":
		return readNPY[uint8](r, shape)
	case "i2":
		return readNPY[int16](r, shape)
	case "u2":
		return readNPY[uint16](r, shape)
	case "i4":
		return readNPY[int32](r, shape)
	case "u4":
		return readNPY[uint32](r, shape)
	case "i8":
		return readNPY[int64](r, shape)
	case "u8":
		return readNPY[uint64](r, shape)
	case "f4":
		return readNPY[float32](r, shape)
	case "f8":
		return readNPY[float64](r, shape)
	default:
		return nil, fmt.Errorf("npy %s: unsupported dtype %q", path, descr.Type)
	}
}

func readNPY[T raster.Numeric](r *npyio.Reader, shape []int) (Loaded, error) {
	var pix []T
	if err := r.Read(&pix); err != nil {
		return nil, fmt.Errorf("read npy data: %w", err)
	}
	img, err := raster.NewImage(pix, shape...)
	if err != nil {
		return nil, err
	}
	return Wrap(img), nil
}

func loadASC(path string) (Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	grid, err := gdal.ParseAAIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	img, err := raster.NewImage(grid.Data, grid.Height, grid.Width)
	if err != nil {
		return nil, err
	}
	return Wrap(img), nil
}

// loadViaGDAL converts any GDAL-readable raster to an ASCII grid staged
// next to the input, then parses it.
func loadViaGDAL(ctx context.Context, path string) (Loaded, error) {
	tmpDir := filepath.Join(filepath.Dir(path), ".tmp", uuid.NewString())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		os.RemoveAll(tmpDir)
		os.Remove(filepath.Dir(tmpDir))
	}()

	asc := filepath.Join(tmpDir, "image.asc")
	if err := gdal.ToAAIGrid(ctx, path, asc); err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return loadASC(asc)
}
