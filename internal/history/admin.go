package history

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/pointdiff/internal/httputil"
)

// runJSON is the wire form of Run.
type runJSON struct {
	ID                  string  `json:"run_id"`
	StartedAt           string  `json:"started_at"`
	DurationMs          int64   `json:"duration_ms"`
	FirstPath           string  `json:"first_path"`
	SecondPath          string  `json:"second_path"`
	Threshold           float64 `json:"threshold"`
	Renderer            string  `json:"renderer"`
	Total               int     `json:"total_points"`
	Exceeding           int     `json:"exceeding_points"`
	ExceedingPercentage float64 `json:"exceeding_percentage"`
	AgreementScore      float64 `json:"agreement_score"`
	Output              string  `json:"output,omitempty"`
	Error               string  `json:"error,omitempty"`
}

func toJSON(r Run) runJSON {
	return runJSON{
		ID:                  r.ID.String(),
		StartedAt:           r.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationMs:          r.Duration.Milliseconds(),
		FirstPath:           r.FirstPath,
		SecondPath:          r.SecondPath,
		Threshold:           r.Threshold,
		Renderer:            r.Renderer,
		Total:               r.Total,
		Exceeding:           r.Exceeding,
		ExceedingPercentage: r.ExceedingPercentage,
		AgreementScore:      r.AgreementScore,
		Output:              r.Output,
		Error:               r.Error,
	}
}

// AttachAdminRoutes mounts the run API under /api/runs and the debug pages,
// including a tailsql console over the ledger, under /debug/.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	mux.HandleFunc("GET /api/runs", s.handleList)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGet)

	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to the ledger
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://pointdiff-history.db", s.DB(), &tailsql.DBOptions{
		Label: "Run history",
	})
	debug.Handle("tailsql/", "SQL over the run history", tsql.NewMux())
	return nil
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.List(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toJSON(run))
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"runs":  out,
		"count": len(out),
	})
}

func (s *Store) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.BadRequest(w, "invalid run id")
		return
	}
	run, err := s.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSONOK(w, toJSON(run))
}
