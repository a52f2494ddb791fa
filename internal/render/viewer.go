package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/monitoring"
)

// Viewer serves a scene as an interactive, rotatable 3D point cloud on a
// loopback HTTP server. Flagged points are drawn twice: at their position in
// the first dataset and at their position in the second.
type Viewer struct {
	Listen  string // e.g. "127.0.0.1:0"
	Palette Palette
	Order   AxisOrder
	// AssetsHost overrides where the page loads echarts from. Empty uses the
	// library's CDN.
	AssetsHost string
	// Opener, when set, is handed the viewer URL once the server listens.
	Opener Opener
	// OnReady, when set, is called with the viewer URL once the server listens.
	OnReady func(url string)
}

// Render serves the scene until ctx is cancelled and returns the URL it was
// served on.
func (v *Viewer) Render(ctx context.Context, scene Scene) (string, error) {
	page, err := v.Page(scene)
	if err != nil {
		return "", err
	}

	addr := v.Listen
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("%w: failed to listen on %s: %v", ErrRender, addr, err)
	}
	url := "http://" + ln.Addr().String() + "/"

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		monitoring.Logf("viewer serving %s at %s", scene.ID, url)
		if v.OnReady != nil {
			v.OnReady(url)
		}
		if v.Opener != nil {
			if err := v.Opener.Open(gctx, url); err != nil {
				monitoring.Logf("could not open browser (%v); visit %s", err, url)
			}
		}
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return url, fmt.Errorf("%w: viewer server: %v", ErrRender, err)
	}
	monitoring.Debugf("viewer for %s closed", scene.ID)
	return url, nil
}

// Page renders the scene's chart as a standalone HTML document. It fails
// when the chart options cannot be encoded, since the page would otherwise
// ship an empty option literal and draw nothing.
func (v *Viewer) Page(scene Scene) ([]byte, error) {
	chart := v.Chart(scene.Result)
	chart.Validate()
	if _, err := json.Marshal(chart.JSON()); err != nil {
		return nil, fmt.Errorf("%w: chart options for %s: %v", ErrRender, scene.ID, err)
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Chart builds the Scatter3D chart for res.
func (v *Viewer) Chart(res *deviation.Result) *charts.Scatter3D {
	below, aboveFirst, aboveSecond := v.Series(res)
	labels := v.Order.Labels()

	initOpts := opts.Initialization{PageTitle: "pointdiff", Width: "100%", Height: "900px"}
	if v.AssetsHost != "" {
		initOpts.AssetsHost = v.AssetsHost
	}

	chart := charts.NewScatter3D()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title: Title,
			Subtitle: fmt.Sprintf("threshold=%g total=%d exceeding=%d (%.2f%%)",
				res.Threshold, res.Summary.Total, res.Summary.Exceeding, res.Summary.ExceedingPercentage),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: labels[0], Show: opts.Bool(true)}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: labels[1]}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: labels[2]}),
		charts.WithGrid3DOpts(opts.Grid3D{
			BoxWidth:  100,
			BoxHeight: 100,
			BoxDepth:  100,
		}),
	)

	chart.AddSeries(LabelBelow, below, charts.WithItemStyleOpts(opts.ItemStyle{Color: v.Palette.Below}))
	chart.AddSeries(LabelAbove+" (first)", aboveFirst, charts.WithItemStyleOpts(opts.ItemStyle{Color: v.Palette.Above}))
	chart.AddSeries(LabelAboveSecond, aboveSecond, charts.WithItemStyleOpts(opts.ItemStyle{Color: v.Palette.AboveSecond}))
	return chart
}

// Series returns the three point sets the viewer draws: points within the
// threshold at their first position, flagged points at their first
// position, and flagged points at their second position.
func (v *Viewer) Series(res *deviation.Result) (below, aboveFirst, aboveSecond []opts.Chart3DData) {
	b, a := res.Partition()

	point := func(c [3]float64, name string) opts.Chart3DData {
		return opts.Chart3DData{Name: name, Value: []interface{}{c[0], c[1], c[2]}}
	}

	below = make([]opts.Chart3DData, 0, len(b))
	for _, r := range b {
		below = append(below, point(v.Order.Apply(r.First), r.Key.String()))
	}
	aboveFirst = make([]opts.Chart3DData, 0, len(a))
	aboveSecond = make([]opts.Chart3DData, 0, len(a))
	for _, r := range a {
		aboveFirst = append(aboveFirst, point(v.Order.Apply(r.First), r.Key.String()))
		aboveSecond = append(aboveSecond, point(v.Order.Apply(r.Second), r.Key.String()))
	}
	return below, aboveFirst, aboveSecond
}
