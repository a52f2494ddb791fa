package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/fsutil"
	"github.com/banshee-data/pointdiff/internal/history"
	"github.com/banshee-data/pointdiff/internal/monitoring"
	"github.com/banshee-data/pointdiff/internal/pointcloud"
	"github.com/banshee-data/pointdiff/internal/render"
	"github.com/banshee-data/pointdiff/internal/security"
	"github.com/banshee-data/pointdiff/internal/timeutil"
)

// ErrEmptyJoin is returned when the two datasets share no key.
var ErrEmptyJoin = errors.New("no common keys between the two datasets")

// Request is the input of one run.
type Request struct {
	First     string
	Second    string
	Threshold float64
}

// Outcome is the output of a successful run.
type Outcome struct {
	ID     uuid.UUID
	Result *deviation.Result
	// Output is where the renderer wrote or served the scene.
	Output string
	// Export is the merged-table CSV path, when exporting is enabled.
	Export string
}

// Runner executes a run. Pipeline is the production implementation.
type Runner interface {
	Run(ctx context.Context, req Request) (*Outcome, error)
}

// Recorder stores run history. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Pipeline runs Loader/Merger, Deviation Analyzer and Renderer in sequence.
type Pipeline struct {
	FS         fsutil.FileSystem
	Columns    pointcloud.Columns
	Duplicates pointcloud.DuplicatePolicy

	Renderer     render.Renderer
	RendererName string

	// Out receives the console report; nil skips it.
	Out        io.Writer
	Report     deviation.ReportOptions
	PrintStats bool

	// ExportDir, when set, receives <id>.csv with the merged table.
	ExportDir string

	// History, when set, records every run including failed ones.
	History Recorder

	Clock timeutil.Clock
	NewID func() uuid.UUID
}

// Run executes one comparison.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	newID := p.NewID
	if newID == nil {
		newID = uuid.New
	}

	out := &Outcome{ID: newID()}
	started := clock.Now()
	err := p.run(ctx, req, out)

	if p.History != nil {
		entry := history.Run{
			ID:         out.ID,
			StartedAt:  started,
			Duration:   clock.Since(started),
			FirstPath:  req.First,
			SecondPath: req.Second,
			Threshold:  req.Threshold,
			Renderer:   p.RendererName,
			Output:     out.Output,
		}
		if out.Result != nil {
			s := out.Result.Summary
			entry.Total, entry.Exceeding = s.Total, s.Exceeding
			entry.ExceedingPercentage, entry.AgreementScore = s.ExceedingPercentage, s.AgreementScore
		}
		if err != nil {
			entry.Error = err.Error()
		}
		// The ledger must not outlive the run's own failure, so it uses a
		// fresh context when ctx was cancelled to close the viewer.
		if herr := p.History.Record(context.WithoutCancel(ctx), entry); herr != nil {
			monitoring.Logf("failed to record run %s: %v", out.ID, herr)
		}
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, out *Outcome) error {
	if err := deviation.ValidateThreshold(req.Threshold); err != nil {
		return err
	}

	first, err := pointcloud.LoadFile(p.FS, req.First, p.Columns)
	if err != nil {
		return err
	}
	second, err := pointcloud.LoadFile(p.FS, req.Second, p.Columns)
	if err != nil {
		return err
	}

	pairs, err := pointcloud.Merge(first, second, p.Duplicates)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%w (%d and %d rows)", ErrEmptyJoin, first.Len(), second.Len())
	}

	res, err := deviation.Analyze(pairs, req.Threshold)
	if err != nil {
		return err
	}
	out.Result = res
	monitoring.Logf("run %s: %d of %d points exceed %g", out.ID, res.Summary.Exceeding, res.Summary.Total, req.Threshold)

	if p.Out != nil {
		if err := deviation.Report(p.Out, res.Summary, p.Report); err != nil {
			return err
		}
		if p.PrintStats {
			if err := deviation.ReportStats(p.Out, res.Stats); err != nil {
				return err
			}
		}
	}

	if p.ExportDir != "" {
		path, err := p.export(out.ID, res)
		if err != nil {
			return err
		}
		out.Export = path
	}

	if p.Renderer == nil {
		return nil
	}
	location, err := p.Renderer.Render(ctx, render.Scene{ID: out.ID.String(), Result: res})
	out.Output = location
	return err
}

func (p *Pipeline) export(id uuid.UUID, res *deviation.Result) (string, error) {
	if err := p.FS.MkdirAll(p.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(p.ExportDir, security.SanitizeFilename(id.String())+".csv")
	f, err := p.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export: %w", err)
	}
	if err := deviation.WriteCSV(f, res.Records, p.Columns.Key, p.Columns.Position); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	monitoring.Logf("merged table written to %s", path)
	return path, nil
}

// Classify names the error category shown to the operator.
func Classify(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "Validation"
	case errors.Is(err, deviation.ErrInvalidThreshold):
		return "InvalidThreshold"
	case errors.Is(err, pointcloud.ErrMissingColumn):
		return "MissingColumn"
	case errors.Is(err, pointcloud.ErrInvalidValue):
		return "InvalidValue"
	case errors.Is(err, pointcloud.ErrNoHeader):
		return "EmptyInput"
	case errors.Is(err, pointcloud.ErrDuplicateKey):
		return "DuplicateKey"
	case errors.Is(err, ErrEmptyJoin):
		return "EmptyJoinResult"
	case errors.Is(err, deviation.ErrDivisionUndefined):
		return "DivisionUndefined"
	case errors.Is(err, render.ErrRender):
		return "Render"
	default:
		return "Input"
	}
}
