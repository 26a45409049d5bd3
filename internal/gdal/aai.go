package gdal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Grid represents an ESRI ASCII grid (AAIGrid). Data is row-major with the
// northern row first, as stored in the file.
type Grid struct {
	Width     int
	Height    int
	XLLCorner float64
	YLLCorner float64
	CellSizeX float64
	CellSizeY float64
	NoData    float64
	Data      []float64
}

var headerKeys = map[string]bool{
	"ncols":        true,
	"nrows":        true,
	"xllcorner":    true,
	"yllcorner":    true,
	"xllcenter":    true,
	"yllcenter":    true,
	"cellsize":     true,
	"dx":           true,
	"dy":           true,
	"nodata_value": true,
}

// ParseAAIGrid reads an ESRI ASCII grid from r. Both the square "cellsize"
// header and the GDAL "dx"/"dy" extension are accepted.
func ParseAAIGrid(r io.Reader) (Grid, error) {
	reader := bufio.NewReader(r)
	fields, err := parseHeaderFields(reader)
	if err != nil {
		return Grid{}, err
	}

	width, height, err := parseGridDimensions(fields)
	if err != nil {
		return Grid{}, err
	}

	grid := Grid{Width: width, Height: height}
	if err := parseGeoreference(fields, &grid); err != nil {
		return Grid{}, err
	}

	// nodata_value is optional, default to -9999 if not present
	grid.NoData, err = parseNoDataValue(fields)
	if err != nil {
		return Grid{}, err
	}

	grid.Data, err = parseGridData(reader, width*height)
	if err != nil {
		return Grid{}, err
	}

	if err := validateNoTrailingData(reader); err != nil {
		return Grid{}, err
	}

	return grid, nil
}

func parseHeaderFields(reader *bufio.Reader) (map[string]string, error) {
	fields := make(map[string]string, 7)
	for {
		isHeader, err := nextIsHeaderKey(reader)
		if err != nil {
			return nil, err
		}
		if !isHeader {
			return fields, nil
		}

		key, value, err := scanHeaderPair(reader)
		if err != nil {
			return nil, err
		}
		fields[strings.ToLower(key)] = value
	}
}

// nextIsHeaderKey skips whitespace and reports whether the next token is a
// known header key.
func nextIsHeaderKey(reader *bufio.Reader) (bool, error) {
	for {
		r, _, err := reader.ReadRune()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("parse header: %w", err)
		}
		if unicode.IsSpace(r) {
			continue
		}
		if err := reader.UnreadRune(); err != nil {
			return false, fmt.Errorf("parse header: %w", err)
		}
		break
	}

	peek, err := reader.Peek(len("nodata_value") + 1)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return false, fmt.Errorf("parse header: %w", err)
	}
	token := strings.ToLower(strings.FieldsFunc(string(peek), unicode.IsSpace)[0])
	return headerKeys[token], nil
}

func scanHeaderPair(reader *bufio.Reader) (string, string, error) {
	key, err := scanHeaderToken(reader, "key")
	if err != nil {
		return "", "", err
	}

	value, err := scanHeaderToken(reader, "value")
	if err != nil {
		return "", "", err
	}

	return key, value, nil
}

func scanHeaderToken(reader *bufio.Reader, tokenName string) (string, error) {
	var token string
	_, err := fmt.Fscan(reader, &token)
	if err == nil {
		return token, nil
	}
	if err == io.EOF {
		return "", fmt.Errorf("parse header: unexpected EOF")
	}

	return "", fmt.Errorf("parse header %s: %w", tokenName, err)
}

func parseNoDataValue(fields map[string]string) (float64, error) {
	nodata := -9999.0
	value, ok := fields["nodata_value"]
	if !ok {
		return nodata, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse header: nodata_value=%q: %w", value, err)
	}

	return parsed, nil
}

func parseGridData(reader *bufio.Reader, expected int) ([]float64, error) {
	data := make([]float64, 0, expected)
	for len(data) < expected {
		var value float64
		_, err := fmt.Fscan(reader, &value)
		if err == io.EOF {
			return nil, fmt.Errorf("parse data: expected %d values, got %d", expected, len(data))
		}
		if err != nil {
			return nil, fmt.Errorf("parse data value %d: %w", len(data), err)
		}
		data = append(data, value)
	}

	return data, nil
}

func validateNoTrailingData(reader *bufio.Reader) error {
	var extra string
	_, err := fmt.Fscan(reader, &extra)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse data: %w", err)
	}

	return fmt.Errorf("parse data: unexpected trailing value %q", extra)
}

func parseGridDimensions(fields map[string]string) (int, int, error) {
	width, err := parseHeaderInt(fields, "ncols")
	if err != nil {
		return 0, 0, err
	}

	height, err := parseHeaderInt(fields, "nrows")
	if err != nil {
		return 0, 0, err
	}

	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("parse header: invalid size %dx%d", width, height)
	}

	return width, height, nil
}

func parseGeoreference(fields map[string]string, grid *Grid) error {
	if _, ok := fields["cellsize"]; ok {
		size, err := parseHeaderFloat(fields, "cellsize")
		if err != nil {
			return err
		}
		grid.CellSizeX, grid.CellSizeY = size, size
	} else {
		var err error
		if grid.CellSizeX, err = parseHeaderFloat(fields, "dx"); err != nil {
			return fmt.Errorf("parse header: missing cellsize: %w", err)
		}
		if grid.CellSizeY, err = parseHeaderFloat(fields, "dy"); err != nil {
			return fmt.Errorf("parse header: missing cellsize: %w", err)
		}
	}

	var err error
	grid.XLLCorner, err = parseCornerOrCenter(fields, "xll", grid.CellSizeX)
	if err != nil {
		return err
	}
	grid.YLLCorner, err = parseCornerOrCenter(fields, "yll", grid.CellSizeY)
	return err
}

// parseCornerOrCenter reads <prefix>corner, or <prefix>center shifted by
// half a cell.
func parseCornerOrCenter(fields map[string]string, prefix string, cellSize float64) (float64, error) {
	if _, ok := fields[prefix+"center"]; ok {
		center, err := parseHeaderFloat(fields, prefix+"center")
		if err != nil {
			return 0, err
		}
		return center - cellSize/2, nil
	}
	return parseHeaderFloat(fields, prefix+"corner")
}

func parseHeaderInt(fields map[string]string, key string) (int, error) {
	value, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("parse header: missing %s", key)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse header: %s=%q: %w", key, value, err)
	}
	return parsed, nil
}

func parseHeaderFloat(fields map[string]string, key string) (float64, error) {
	value, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("parse header: missing %s", key)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse header: %s=%q: %w", key, value, err)
	}
	return parsed, nil
}
