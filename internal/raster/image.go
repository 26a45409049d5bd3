package raster

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Numeric lists the pixel types a single-band GeoTIFF can carry.
type Numeric interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// DataTypeOf returns the GDAL data type name for T.
func DataTypeOf[T Numeric]() string {
	var zero T
	switch any(zero).(type) {
	case int8:
		return "Int8"
	case uint8:
		return "Byte"
	case int16:
		return "Int16"
	case uint16:
		return "UInt16"
	case int32:
		return "Int32"
	case uint32:
		return "UInt32"
	case int64:
		return "Int64"
	case uint64:
		return "UInt64"
	case float32:
		return "Float32"
	default:
		return "Float64"
	}
}

// InvalidImageShapeError reports an image that cannot be reduced to 2-D.
type InvalidImageShapeError struct {
	Shape []int
}

func (e *InvalidImageShapeError) Error() string {
	return fmt.Sprintf("image shape %v does not squeeze to 2-D", e.Shape)
}

// Image is an N-dimensional row-major pixel array.
type Image[T Numeric] struct {
	Shape []int
	Pix   []T
}

// NewImage wraps pix with the given shape. The slice is not copied.
func NewImage[T Numeric](pix []T, shape ...int) (*Image[T], error) {
	if len(shape) == 0 {
		return nil, &InvalidImageShapeError{Shape: shape}
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, &InvalidImageShapeError{Shape: append([]int(nil), shape...)}
		}
		n *= d
	}
	if n != len(pix) {
		return nil, fmt.Errorf("image shape %v needs %d pixels, got %d", shape, n, len(pix))
	}
	return &Image[T]{Shape: append([]int(nil), shape...), Pix: pix}, nil
}

// Squeeze drops leading unit dimensions until two axes remain and returns
// a 2-D view sharing Pix. A 1-D image becomes one row.
func (img *Image[T]) Squeeze() (*Image[T], error) {
	dims := img.Shape
	for len(dims) > 2 && dims[0] == 1 {
		dims = dims[1:]
	}

	switch len(dims) {
	case 2:
		dims = []int{dims[0], dims[1]}
	case 1:
		dims = []int{1, dims[0]}
	default:
		return nil, &InvalidImageShapeError{Shape: append([]int(nil), img.Shape...)}
	}
	return &Image[T]{Shape: dims, Pix: img.Pix}, nil
}

// Height is the number of rows of a 2-D image.
func (img *Image[T]) Height() int { return img.Shape[0] }

// Width is the number of columns of a 2-D image.
func (img *Image[T]) Width() int { return img.Shape[1] }

// FlipRows returns a copy of a 2-D image with the row order reversed.
func (img *Image[T]) FlipRows() *Image[T] {
	h, w := img.Height(), img.Width()
	out := make([]T, len(img.Pix))
	for row := 0; row < h; row++ {
		copy(out[(h-1-row)*w:(h-row)*w], img.Pix[row*w:(row+1)*w])
	}
	return &Image[T]{Shape: []int{h, w}, Pix: out}
}

// Bytes encodes the pixels row-major, little-endian.
func (img *Image[T]) Bytes() []byte {
	var zero T
	size := binary.Size(zero)
	buf := make([]byte, 0, size*len(img.Pix))
	for _, v := range img.Pix {
		buf = appendLE(buf, v)
	}
	return buf
}

func appendLE[T Numeric](buf []byte, v T) []byte {
	switch x := any(v).(type) {
	case int8:
		return append(buf, byte(x))
	case uint8:
		return append(buf, x)
	case int16:
		return binary.LittleEndian.AppendUint16(buf, uint16(x))
	case uint16:
		return binary.LittleEndian.AppendUint16(buf, x)
	case int32:
		return binary.LittleEndian.AppendUint32(buf, uint32(x))
	case uint32:
		return binary.LittleEndian.AppendUint32(buf, x)
	case int64:
		return binary.LittleEndian.AppendUint64(buf, uint64(x))
	case uint64:
		return binary.LittleEndian.AppendUint64(buf, x)
	case float32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
	case float64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	panic(fmt.Sprintf("raster: unsupported pixel type %T", v))
}
