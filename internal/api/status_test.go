package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/mirador-bfeval/internal/evaluation"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/runner"
)

func TestStatusFollowsRunLifecycle(t *testing.T) {
	hs := health.NewServer()
	status := NewStatus(hs)

	if got := status.Snapshot().Phase; got != PhaseIdle {
		t.Fatalf("expected idle phase, got %s", got)
	}

	status.RunStarted("run-1", models.ModeFlows, "rules", 4)
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName(models.ModeFlows)})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING during run, got %s", resp.Status)
	}

	state := models.AnalysisState{Positives: 1, TruePositives: 1, Precision: 1, Recall: 1, F1: 1}
	status.UnitDone("run-1", runner.Progress{Ordinal: 2, Total: 4, Evaluated: 2, State: state})
	status.UnitDone("stale-run", runner.Progress{Ordinal: 3, Total: 4, Evaluated: 3})

	snap := status.Snapshot()
	if snap.Phase != PhaseRunning || snap.Handled != 2 || snap.Evaluated != 2 {
		t.Fatalf("unexpected progress %+v", snap)
	}
	if snap.State != state {
		t.Fatalf("expected state %+v, got %+v", state, snap.State)
	}

	status.RunFinished(evaluation.Report{RunID: "run-1", Total: 4, Evaluated: 3, Skipped: 1, State: state})
	snap = status.Snapshot()
	if snap.Phase != PhaseFinished || snap.Handled != 4 || snap.Skipped != 1 {
		t.Fatalf("unexpected final status %+v", snap)
	}
	resp, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName(models.ModeFlows)})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after run, got %s", resp.Status)
	}
}

func TestStatusWithoutHealthServer(t *testing.T) {
	status := NewStatus(nil)
	status.RunStarted("run-2", models.ModeLogs, "ollama/llama3.2:3b", 1)
	status.RunFinished(evaluation.Report{RunID: "run-2", Total: 1, Evaluated: 1})
	if got := status.Snapshot().Phase; got != PhaseFinished {
		t.Fatalf("expected finished phase, got %s", got)
	}
}

func TestRouter(t *testing.T) {
	status := NewStatus(nil)
	status.RunStarted("run-3", models.ModeLogs, "rules", 2)
	srv := httptest.NewServer(NewRouter(status))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	var got RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.RunID != "run-3" || got.Phase != PhaseRunning || got.Total != 2 {
		t.Fatalf("unexpected status body %+v", got)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
