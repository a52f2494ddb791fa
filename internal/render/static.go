package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/monitoring"
	"github.com/banshee-data/pointdiff/internal/security"
)

// Static renders a scene as a 3D scatter projected onto a 2D image. Points
// are drawn at their first-dataset position, coloured by whether they exceed
// the threshold.
type Static struct {
	FS        fsutil.FileSystem
	Dir       string
	Format    string // png, svg or pdf
	Palette   Palette
	Order     AxisOrder
	Azimuth   float64 // degrees
	Elevation float64 // degrees
	// Opener, when set, is handed the written image.
	Opener Opener
	// OnReady, when set along with Opener, is called with the image path once
	// it is open. Render then holds until ctx is cancelled, so the caller
	// decides when the operator is done looking at it.
	OnReady func(path string)
}

// Render writes <Dir>/<scene.ID>.<Format> and returns its path. Without
// OnReady it returns as soon as the image is handed to the opener; the
// opener itself does not wait for the image window to close.
func (s *Static) Render(ctx context.Context, scene Scene) (string, error) {
	p, err := s.Plot(scene.Result)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	format := s.Format
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(10*vg.Inch, 7*vg.Inch, format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	if err := s.FS.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create output dir: %v", ErrRender, err)
	}
	path := filepath.Join(s.Dir, security.SanitizeFilename(scene.ID)+"."+format)
	f, err := s.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: failed to write %s: %v", ErrRender, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	monitoring.Logf("plot written to %s", path)

	if s.Opener != nil {
		if err := s.Opener.Open(ctx, path); err != nil {
			return path, fmt.Errorf("%w: failed to open %s: %v", ErrRender, path, err)
		}
		if s.OnReady != nil {
			s.OnReady(path)
			<-ctx.Done()
			monitoring.Debugf("plot %s closed", path)
		}
	}
	return path, nil
}

// Plot builds the projected scatter plot for res.
func (s *Static) Plot(res *deviation.Result) (*plot.Plot, error) {
	below, above := res.Partition()

	belowColor, err := parseColor(s.Palette.Below)
	if err != nil {
		return nil, err
	}
	aboveColor, err := parseColor(s.Palette.Above)
	if err != nil {
		return nil, err
	}

	pts := make([]r3.Vec, 0, len(res.Records))
	for _, r := range res.Records {
		pts = append(pts, s.vec(r))
	}
	proj := newProjection(s.Azimuth, s.Elevation, pts)

	p := plot.New()
	p.Title.Text = Title
	p.HideAxes()
	p.Legend.Top = true

	if err := addAxes(p, proj, s.Order.Labels()); err != nil {
		return nil, err
	}

	for _, series := range []struct {
		label   string
		records []deviation.Record
		color   color.Color
	}{
		{LabelBelow, below, belowColor},
		{LabelAbove, above, aboveColor},
	} {
		if len(series.records) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(series.records))
		for i, r := range series.records {
			xys[i] = proj.project(s.vec(r))
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = series.color
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(series.label, sc)
	}

	return p, nil
}

func (s *Static) vec(r deviation.Record) r3.Vec {
	c := s.Order.Apply(r.First)
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}
}

// projection maps points into a unit cube centred on the origin and then
// onto the image plane of a camera at the given azimuth and elevation.
type projection struct {
	min, span r3.Vec
	right, up r3.Vec
}

func newProjection(azimuthDeg, elevationDeg float64, pts []r3.Vec) projection {
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range pts {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	if len(pts) == 0 {
		lo, hi = r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}
	}
	span := r3.Sub(hi, lo)
	for _, c := range []*float64{&span.X, &span.Y, &span.Z} {
		if *c == 0 {
			*c = 1
		}
	}

	az := azimuthDeg * math.Pi / 180
	el := elevationDeg * math.Pi / 180
	return projection{
		min:   lo,
		span:  span,
		right: r3.Vec{X: -math.Sin(az), Y: math.Cos(az)},
		up:    r3.Vec{X: -math.Sin(el) * math.Cos(az), Y: -math.Sin(el) * math.Sin(az), Z: math.Cos(el)},
	}
}

// normalize maps v into [-0.5, 0.5] on each axis.
func (p projection) normalize(v r3.Vec) r3.Vec {
	d := r3.Sub(v, p.min)
	return r3.Vec{X: d.X/p.span.X - 0.5, Y: d.Y/p.span.Y - 0.5, Z: d.Z/p.span.Z - 0.5}
}

func (p projection) project(v r3.Vec) plotter.XY {
	return p.screen(p.normalize(v))
}

func (p projection) screen(n r3.Vec) plotter.XY {
	return plotter.XY{X: r3.Dot(n, p.right), Y: r3.Dot(n, p.up)}
}

// addAxes draws the three axes from the back corner of the unit cube with a
// label at each tip.
func addAxes(p *plot.Plot, proj projection, labels [3]string) error {
	origin := r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}
	tips := []r3.Vec{
		{X: 0.5, Y: -0.5, Z: -0.5},
		{X: -0.5, Y: 0.5, Z: -0.5},
		{X: -0.5, Y: -0.5, Z: 0.5},
	}

	labelXYs := make(plotter.XYs, len(tips))
	for i, tip := range tips {
		l, err := plotter.NewLine(plotter.XYs{proj.screen(origin), proj.screen(tip)})
		if err != nil {
			return err
		}
		l.Width = vg.Points(1)
		l.Color = color.Gray{Y: 96}
		p.Add(l)
		labelXYs[i] = proj.screen(r3.Scale(1.08, tip))
	}

	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels[:]})
	if err != nil {
		return err
	}
	p.Add(lbls)
	return nil
}
