package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/pointdiff/internal/config"
	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/history"
	"github.com/banshee-data/pointdiff/internal/pointcloud"
	"github.com/banshee-data/pointdiff/internal/render"
	"github.com/banshee-data/pointdiff/internal/shell"
)

// newRenderer builds the renderer cfg selects. onReady is called with the
// viewer URL or the opened image path; the renderer then holds until its
// context is cancelled.
func newRenderer(cfg *config.Config, fsys fsutil.FileSystem, onReady func(url string)) (render.Renderer, error) {
	order, err := render.ParseAxisOrder(cfg.GetAxisOrder())
	if err != nil {
		return nil, err
	}
	palette := render.Palette(cfg.GetPalette())
	var opener render.Opener
	if cfg.GetOpen() {
		opener = render.BrowserOpener{}
	}

	switch cfg.GetRenderer() {
	case config.RendererStatic:
		return &render.Static{
			FS:        fsys,
			Dir:       cfg.GetOutputDir(),
			Format:    cfg.GetImageFormat(),
			Palette:   palette,
			Order:     order,
			Azimuth:   cfg.GetAzimuth(),
			Elevation: cfg.GetElevation(),
			Opener:    opener,
			OnReady:   onReady,
		}, nil
	case config.RendererViewer:
		return &render.Viewer{
			Listen:  cfg.GetListen(),
			Palette: palette,
			Order:   order,
			Opener:  opener,
			OnReady: onReady,
		}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", cfg.GetRenderer())
}

// newPipeline wires a pipeline from cfg. The returned close function
// releases the history store and must be called when done.
func newPipeline(cfg *config.Config, fsys fsutil.FileSystem, out io.Writer, color bool, onReady func(url string)) (*shell.Pipeline, func() error, error) {
	cols, err := pointcloud.NewColumns(cfg.GetKeyColumns(), cfg.GetPositionColumns())
	if err != nil {
		return nil, nil, err
	}
	policy, err := pointcloud.ParseDuplicatePolicy(cfg.GetDuplicateKeys())
	if err != nil {
		return nil, nil, err
	}
	r, err := newRenderer(cfg, fsys, onReady)
	if err != nil {
		return nil, nil, err
	}

	p := &shell.Pipeline{
		FS:           fsys,
		Columns:      cols,
		Duplicates:   policy,
		Renderer:     r,
		RendererName: cfg.GetRenderer(),
		Out:          out,
		Report:       deviation.ReportOptions{Agreement: cfg.GetReportAgreement(), Color: color},
	}
	if cfg.GetExportCSV() {
		p.ExportDir = cfg.GetOutputDir()
	}

	closeFn := func() error { return nil }
	if path := cfg.GetHistoryDB(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history: %w", err)
		}
		p.History = store
		closeFn = store.Close
	}
	return p, closeFn, nil
}
