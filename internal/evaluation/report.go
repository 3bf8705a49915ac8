package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

// Report summarises a finished run.
type Report struct {
	RunID     string               `json:"run_id"`
	Mode      string               `json:"mode"`
	Backend   string               `json:"backend"`
	StartedAt time.Time            `json:"started_at"`
	Elapsed   time.Duration        `json:"elapsed"`
	Total     int                  `json:"total"`
	Evaluated int                  `json:"evaluated"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
	State     models.AnalysisState `json:"state"`
}

// Snapshot renders the running metrics after one absorption.
func Snapshot(state models.AnalysisState) string {
	return fmt.Sprintf("positives=%d tp=%d fp=%d fn=%d precision=%.4f recall=%.4f f1=%.4f",
		state.Positives, state.TruePositives, state.FalsePositives, state.FalseNegatives,
		state.Precision, state.Recall, state.F1)
}

// String renders the human-readable final report.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Final report (%s run %s, backend %s)\n", r.Mode, r.RunID, r.Backend)
	fmt.Fprintf(&b, "  units:           %d total, %d evaluated, %d skipped, %d failed\n", r.Total, r.Evaluated, r.Skipped, r.Failed)
	fmt.Fprintf(&b, "  elapsed:         %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "  positives:       %d\n", r.State.Positives)
	fmt.Fprintf(&b, "  true positives:  %d\n", r.State.TruePositives)
	fmt.Fprintf(&b, "  false positives: %d\n", r.State.FalsePositives)
	fmt.Fprintf(&b, "  false negatives: %d\n", r.State.FalseNegatives)
	fmt.Fprintf(&b, "  precision:       %.4f\n", r.State.Precision)
	fmt.Fprintf(&b, "  recall:          %.4f\n", r.State.Recall)
	fmt.Fprintf(&b, "  f1:              %.4f\n", r.State.F1)
	return b.String()
}

// WriteJSON stores the report as report-<run id>.json under dir and returns the path.
func WriteJSON(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, "report-"+r.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
