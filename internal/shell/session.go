// Package shell drives comparison runs: the operator enters a threshold,
// picks two exports, and the pipeline loads, compares and renders them.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/monitoring"
)

// State is a step of the run state machine.
type State int

const (
	Idle State = iota
	ThresholdEntered
	FilesSelected
	Processed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ThresholdEntered:
		return "ThresholdEntered"
	case FilesSelected:
		return "FilesSelected"
	case Processed:
		return "Processed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Operator-facing status messages.
const (
	MsgInvalidThreshold = "Please enter a valid threshold."
	MsgSelectBothFiles  = "Please select both CSV files."
	MsgComplete         = "Processing complete!"
)

// ErrWrongState is returned when an operation is called out of order.
var ErrWrongState = errors.New("operation not allowed in current state")

// ValidationError is an operator input problem. The session recovers from it
// by returning to Idle.
type ValidationError struct {
	Msg    string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Msg
	}
	return e.Msg + " (" + e.Detail + ")"
}

// Session owns the Idle → ThresholdEntered → FilesSelected → Processed →
// Idle state machine. It is safe for concurrent use; Process runs the
// pipeline without holding the lock so a UI can poll Status meanwhile.
type Session struct {
	runner Runner

	mu            sync.Mutex
	state         State
	thresholdText string
	threshold     float64
	first, second string
	status        string
	last          *Outcome

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// NewSession returns an idle session that runs requests on runner.
func NewSession(runner Runner) *Session {
	return &Session{runner: runner}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the operator status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ThresholdText returns the last threshold text entered; it persists
// across runs.
func (s *Session) ThresholdText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholdText
}

// Last returns the most recent successful outcome.
func (s *Session) Last() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	monitoring.Debugf("session %s -> %s", from, to)
	if s.OnTransition != nil {
		s.OnTransition(from, to)
	}
}

// fail records err as the status and returns to Idle.
func (s *Session) fail(err error) error {
	s.status = err.Error()
	s.transition(Idle)
	return err
}

// EnterThreshold parses text as the run threshold. It is accepted from Idle
// and, to allow correction, from ThresholdEntered.
func (s *Session) EnterThreshold(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle && s.state != ThresholdEntered {
		return fmt.Errorf("%w: EnterThreshold in %s", ErrWrongState, s.state)
	}
	s.thresholdText = text

	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return s.fail(&ValidationError{Msg: MsgInvalidThreshold, Detail: fmt.Sprintf("%q is not a number", text)})
	}
	if err := deviation.ValidateThreshold(v); err != nil {
		return s.fail(&ValidationError{Msg: MsgInvalidThreshold, Detail: "must be a finite number >= 0"})
	}

	s.threshold = v
	s.status = ""
	s.transition(ThresholdEntered)
	return nil
}

// SelectFiles records the two exports to compare. An empty path means the
// operator cancelled the picker.
func (s *Session) SelectFiles(first, second string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ThresholdEntered {
		return fmt.Errorf("%w: SelectFiles in %s", ErrWrongState, s.state)
	}
	if first == "" || second == "" {
		return s.fail(&ValidationError{Msg: MsgSelectBothFiles})
	}

	s.first, s.second = first, second
	s.transition(FilesSelected)
	return nil
}

// Cancel abandons the current run setup and returns to Idle with a
// validation message, as when the operator closes a file picker.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return
	}
	_ = s.fail(&ValidationError{Msg: MsgSelectBothFiles})
}

// Process runs the pipeline on the selected files. Whatever the outcome the
// session ends in Idle, with the status describing the result.
func (s *Session) Process(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	if s.state != FilesSelected {
		st := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: Process in %s", ErrWrongState, st)
	}
	req := Request{First: s.first, Second: s.second, Threshold: s.threshold}
	s.status = "Processing..."
	s.mu.Unlock()

	out, err := s.runner.Run(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		monitoring.Logf("run failed: %v", err)
		return nil, s.fail(fmt.Errorf("%s: %w", Classify(err), err))
	}
	s.last = out
	s.transition(Processed)
	s.status = MsgComplete
	s.transition(Idle)
	return out, nil
}
