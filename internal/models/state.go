package models

// AnalysisState is the confusion-matrix aggregate of one evaluation run.
// Positives always equals TruePositives + FalseNegatives.
type AnalysisState struct {
	Positives      int     `json:"positives"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}
