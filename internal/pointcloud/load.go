package pointcloud

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/monitoring"
)

// LoadFile opens path through fsys and loads it with Load. The dataset is
// named after the path.
func LoadFile(fsys fsutil.FileSystem, path string, cols Columns) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Load(path, f, cols)
}

// Load reads a CSV export with a header row. Only the configured key and
// position columns are read; other columns are ignored.
func Load(name string, r io.Reader, cols Columns) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	lookup := func(col string) (int, error) {
		i, ok := index[col]
		if !ok {
			return 0, fmt.Errorf("%s: %w %q (header has %d columns)", name, ErrMissingColumn, col, len(header))
		}
		return i, nil
	}

	var keyIdx [2]int
	for i, c := range cols.Key {
		if keyIdx[i], err = lookup(c); err != nil {
			return nil, err
		}
	}
	var posIdx [3]int
	for i, c := range cols.Position {
		if posIdx[i], err = lookup(c); err != nil {
			return nil, err
		}
	}

	ds := &Dataset{Name: name}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)

		var v [3]float64
		for i, idx := range posIdx {
			cell := strings.TrimSpace(rec[idx])
			v[i], err = strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				return nil, fmt.Errorf("%s:%d: %w in column %q: %q", name, line, ErrInvalidValue, cols.Position[i], cell)
			}
		}

		ds.Rows = append(ds.Rows, Row{
			Key: Key{
				PixelX: canonicalKey(rec[keyIdx[0]]),
				PixelY: canonicalKey(rec[keyIdx[1]]),
			},
			Pos:  Point{X: v[0], Y: v[1], Z: v[2]},
			Line: line,
		})
	}

	monitoring.Debugf("loaded %d rows from %s", len(ds.Rows), name)
	return ds, nil
}

// maxExactInt is the largest magnitude below which every integer is exact
// in a float64.
const maxExactInt = 1 << 53

// canonicalKey normalises numeric identifiers so that equal numbers written
// differently ("7", "7.0", "7e0", "-0") join. Integers are compared exactly;
// non-numeric cells are kept verbatim.
func canonicalKey(cell string) string {
	cell = strings.TrimSpace(cell)
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	if v == math.Trunc(v) && math.Abs(v) <= maxExactInt {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
