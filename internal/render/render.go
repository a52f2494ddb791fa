// Package render draws a deviation result either as a static projected
// scatter plot or as an interactive 3D point cloud in the browser.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/browser"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/pointcloud"
)

// ErrRender wraps every failure of a rendering backend.
var ErrRender = errors.New("render failed")

// Title is shown on both renderers.
const Title = "3D Point Cloud - Threshold Visualization"

// Series labels.
const (
	LabelBelow       = "Below Threshold"
	LabelAbove       = "Above Threshold"
	LabelAboveSecond = "Above Threshold (second)"
)

// Scene is what a renderer draws: one analysed run.
type Scene struct {
	ID     string
	Result *deviation.Result
}

// Renderer draws a scene. Render blocks until the operator is done with the
// output and returns where it was written or served.
type Renderer interface {
	Render(ctx context.Context, scene Scene) (string, error)
}

// Palette holds the series colours as hex strings.
type Palette struct {
	Below       string
	Above       string
	AboveSecond string
}

func parseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return c, nil
}

// AxisOrder maps plot axes to point components: AxisOrder("xzy") draws the
// point's z on the second plot axis and its y on the third.
type AxisOrder [3]byte

// ParseAxisOrder accepts any permutation of "xyz", case-insensitively.
func ParseAxisOrder(s string) (AxisOrder, error) {
	var o AxisOrder
	s = strings.ToLower(s)
	if len(s) != 3 {
		return o, fmt.Errorf("axis order %q must have 3 letters", s)
	}
	seen := map[byte]bool{}
	for i := 0; i < 3; i++ {
		c := s[i]
		if (c != 'x' && c != 'y' && c != 'z') || seen[c] {
			return o, fmt.Errorf("axis order %q is not a permutation of xyz", s)
		}
		seen[c] = true
		o[i] = c
	}
	return o, nil
}

// Apply returns p's components in plot-axis order.
func (o AxisOrder) Apply(p pointcloud.Point) [3]float64 {
	var out [3]float64
	for i, a := range o {
		switch a {
		case 'x':
			out[i] = p.X
		case 'y':
			out[i] = p.Y
		default:
			out[i] = p.Z
		}
	}
	return out
}

// Labels returns the upper-case axis names in plot order.
func (o AxisOrder) Labels() [3]string {
	var l [3]string
	for i, a := range o {
		l[i] = strings.ToUpper(string(a))
	}
	return l
}

func (o AxisOrder) String() string {
	return string(o[:])
}

// Opener hands a file or URL to the desktop.
type Opener interface {
	Open(ctx context.Context, target string) error
}

// BrowserOpener opens targets with the platform's default handler.
type BrowserOpener struct{}

// Open launches the default handler for target. URLs go to the browser,
// anything else is treated as a file path.
func (BrowserOpener) Open(_ context.Context, target string) error {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return browser.OpenURL(target)
	}
	return browser.OpenFile(target)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, target string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, target string) error {
	return f(ctx, target)
}
