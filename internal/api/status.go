package api

import (
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/mirador-bfeval/internal/evaluation"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/runner"
)

// RunStatus is the externally visible view of the current or last run.
type RunStatus struct {
	RunID     string               `json:"run_id,omitempty"`
	Mode      models.Mode          `json:"mode,omitempty"`
	Backend   string               `json:"backend,omitempty"`
	Phase     string               `json:"phase"`
	StartedAt time.Time            `json:"started_at,omitempty"`
	Total     int                  `json:"total"`
	Handled   int                  `json:"handled"`
	Evaluated int                  `json:"evaluated"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
	State     models.AnalysisState `json:"state"`
}

const (
	PhaseIdle     = "idle"
	PhaseRunning  = "running"
	PhaseFinished = "finished"
)

// Status tracks run progress for the HTTP and gRPC health surfaces.
// It implements runner.Observer.
type Status struct {
	mu      sync.RWMutex
	current RunStatus
	health  *health.Server
	now     func() time.Time
}

var _ runner.Observer = (*Status)(nil)

// NewStatus returns an idle tracker. health may be nil.
func NewStatus(hs *health.Server) *Status {
	return &Status{
		current: RunStatus{Phase: PhaseIdle},
		health:  hs,
		now:     time.Now,
	}
}

// RunStarted resets the tracker for a new run and marks the mode as serving.
func (s *Status) RunStarted(runID string, mode models.Mode, backend string, total int) {
	s.mu.Lock()
	s.current = RunStatus{
		RunID:     runID,
		Mode:      mode,
		Backend:   backend,
		Phase:     PhaseRunning,
		StartedAt: s.now(),
		Total:     total,
	}
	s.mu.Unlock()
	s.setServing(mode, healthpb.HealthCheckResponse_SERVING)
}

// UnitDone records the progress after one unit.
func (s *Status) UnitDone(runID string, p runner.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.RunID != runID {
		return
	}
	s.current.Handled = p.Ordinal
	s.current.Evaluated = p.Evaluated
	s.current.Skipped = p.Skipped
	s.current.Failed = p.Failed
	s.current.State = p.State
}

// RunFinished freezes the final numbers and marks the mode as not serving.
func (s *Status) RunFinished(report evaluation.Report) {
	s.mu.Lock()
	if s.current.RunID == report.RunID {
		s.current.Phase = PhaseFinished
		s.current.Handled = report.Evaluated + report.Skipped + report.Failed
		s.current.Evaluated = report.Evaluated
		s.current.Skipped = report.Skipped
		s.current.Failed = report.Failed
		s.current.State = report.State
	}
	mode := s.current.Mode
	s.mu.Unlock()
	s.setServing(mode, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Snapshot returns a copy of the tracked status.
func (s *Status) Snapshot() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Status) setServing(mode models.Mode, status healthpb.HealthCheckResponse_ServingStatus) {
	if s.health == nil || mode == "" {
		return
	}
	s.health.SetServingStatus(ServiceName(mode), status)
}

// ServiceName is the gRPC health service name reported for a mode.
func ServiceName(mode models.Mode) string {
	return "bfeval." + string(mode)
}
