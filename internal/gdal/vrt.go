package gdal

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// VRTDataset is the subset of the GDAL virtual dataset format needed to
// describe raw band files with a geotransform and SRS.
type VRTDataset struct {
	XMLName      xml.Name     `xml:"VRTDataset"`
	RasterXSize  int          `xml:"rasterXSize,attr"`
	RasterYSize  int          `xml:"rasterYSize,attr"`
	SRS          *VRTSRS      `xml:"SRS,omitempty"`
	GeoTransform GeoTransform `xml:"GeoTransform"`
	Bands        []VRTRawBand `xml:"VRTRasterBand"`
}

// VRTSRS holds a spatial reference in any form GDAL accepts as user input.
type VRTSRS struct {
	AxisMapping string `xml:"dataAxisToSRSAxisMapping,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// VRTRawBand is a VRTRawRasterBand reading pixels from a raw file.
type VRTRawBand struct {
	DataType       string        `xml:"dataType,attr"`
	Band           int           `xml:"band,attr"`
	SubClass       string        `xml:"subClass,attr"`
	SourceFilename VRTSourceFile `xml:"SourceFilename"`
	ImageOffset    int64         `xml:"ImageOffset"`
	PixelOffset    int           `xml:"PixelOffset"`
	LineOffset     int           `xml:"LineOffset"`
	ByteOrder      string        `xml:"ByteOrder"`
}

// VRTSourceFile names the raw file backing a band.
type VRTSourceFile struct {
	RelativeToVRT int    `xml:"relativeToVRT,attr"`
	Path          string `xml:",chardata"`
}

// GeoTransform is a GDAL-order affine geotransform:
// x = gt[0] + col*gt[1] + row*gt[2], y = gt[3] + col*gt[4] + row*gt[5].
type GeoTransform [6]float64

// MarshalText writes the comma-separated form used in VRT files.
func (gt GeoTransform) MarshalText() ([]byte, error) {
	parts := make([]string, len(gt))
	for i, v := range gt {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return []byte(strings.Join(parts, ", ")), nil
}

// UnmarshalText parses the comma-separated VRT form.
func (gt *GeoTransform) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ",")
	if len(parts) != len(gt) {
		return fmt.Errorf("geotransform needs %d values, got %d", len(gt), len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("geotransform value %d: %w", i, err)
		}
		gt[i] = v
	}
	return nil
}

// NewRawBand describes a single-band, row-major, little-endian raw file.
func NewRawBand(band int, dataType string, width int, rawPath string) (VRTRawBand, error) {
	size, err := DataTypeSize(dataType)
	if err != nil {
		return VRTRawBand{}, err
	}
	return VRTRawBand{
		DataType:       dataType,
		Band:           band,
		SubClass:       "VRTRawRasterBand",
		SourceFilename: VRTSourceFile{RelativeToVRT: 1, Path: rawPath},
		PixelOffset:    size,
		LineOffset:     size * width,
		ByteOrder:      "LSB",
	}, nil
}

// DataTypeSize returns the byte size of a GDAL data type.
func DataTypeSize(dataType string) (int, error) {
	switch dataType {
	case "Byte", "Int8":
		return 1, nil
	case "Int16", "UInt16":
		return 2, nil
	case "Int32", "UInt32", "Float32":
		return 4, nil
	case "Int64", "UInt64", "Float64":
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported data type %q", dataType)
	}
}

// WriteVRT encodes ds to path.
func WriteVRT(path string, ds VRTDataset) error {
	data, err := xml.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vrt: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vrt: %w", err)
	}
	return nil
}

// readVRT decodes a VRT written by WriteVRT; tests use it to check layout.
func readVRT(path string) (VRTDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VRTDataset{}, fmt.Errorf("read vrt: %w", err)
	}

	var ds VRTDataset
	if err := xml.Unmarshal(data, &ds); err != nil {
		return VRTDataset{}, fmt.Errorf("decode vrt: %w", err)
	}
	return ds, nil
}
