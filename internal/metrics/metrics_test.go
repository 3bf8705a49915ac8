package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("expected second register to be tolerated, got %v", err)
	}
}

func TestObserveUnitNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(unitsTotal.WithLabelValues("flows", OutcomeEvaluated))
	ObserveUnit("flows", "weird", time.Second)
	after := testutil.ToFloat64(unitsTotal.WithLabelValues("flows", OutcomeEvaluated))
	if after-before != 1 {
		t.Fatalf("expected unknown outcome to count as evaluated, delta %v", after-before)
	}
}

func TestSetRunState(t *testing.T) {
	SetRunState("logs", models.AnalysisState{Positives: 3, TruePositives: 2, FalseNegatives: 1, Recall: 2.0 / 3.0})
	if got := testutil.ToFloat64(confusion.WithLabelValues("logs", "tp")); got != 2 {
		t.Fatalf("expected tp gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(score.WithLabelValues("logs", "recall")); got < 0.66 || got > 0.67 {
		t.Fatalf("expected recall gauge ~0.667, got %v", got)
	}
}
