// Package pointcloud loads point-cloud CSV exports and aligns two of them on
// their pixel coordinate key.
package pointcloud

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a configured column is absent from a
	// CSV header.
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalidValue is returned when a position cell is not a number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrDuplicateKey is returned by Merge under DuplicateReject when a key
	// appears more than once in either dataset.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNoHeader is returned for an empty input.
	ErrNoHeader = errors.New("no header row")
)

// Point is a position in 3D space.
type Point struct {
	X, Y, Z float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Key is the pixel coordinate pair that identifies a point across exports.
// Numeric cells are stored in canonical form so "1" and "1.0" compare equal.
type Key struct {
	PixelX string
	PixelY string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.PixelX, k.PixelY)
}

// Row is one point record read from a CSV export.
type Row struct {
	Key  Key
	Pos  Point
	Line int // 1-based line in the source file
}

// Dataset is a loaded CSV export.
type Dataset struct {
	Name string
	Rows []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Columns names the CSV header cells holding the key and the position.
type Columns struct {
	Key      [2]string
	Position [3]string
}

// NewColumns builds Columns from configuration slices.
func NewColumns(key, position []string) (Columns, error) {
	var c Columns
	if len(key) != 2 {
		return c, fmt.Errorf("need 2 key columns, got %d", len(key))
	}
	if len(position) != 3 {
		return c, fmt.Errorf("need 3 position columns, got %d", len(position))
	}
	copy(c.Key[:], key)
	copy(c.Position[:], position)
	return c, nil
}

// DefaultColumns matches the header of the scanner export: a "//" prefixed
// first key column followed by upper-case axis names.
func DefaultColumns() Columns {
	return Columns{
		Key:      [2]string{"//Pixel_X", "Pixel_Y"},
		Position: [3]string{"X", "Y", "Z"},
	}
}
