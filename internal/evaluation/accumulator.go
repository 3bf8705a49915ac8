// Package evaluation scores classifier verdicts against ground truth.
package evaluation

import "github.com/miradorstack/mirador-bfeval/internal/models"

// Precision is tp/(tp+fp), or 0 when nothing was predicted positive.
func Precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall is tp/(tp+fn), or 0 when there were no real positives.
func Recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 is the harmonic mean of precision and recall, or 0 when both are 0.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Absorb folds one scored unit into state and returns the updated copy.
// Only malicious ground truth counts toward Positives; a benign unit predicted
// malicious adds a false positive and nothing else. True negatives are not tracked.
func Absorb(groundTruth, predicted bool, state models.AnalysisState) models.AnalysisState {
	next := state
	switch {
	case groundTruth && predicted:
		next.Positives++
		next.TruePositives++
	case groundTruth:
		next.Positives++
		next.FalseNegatives++
	case predicted:
		next.FalsePositives++
	}

	next.Precision = Precision(next.TruePositives, next.FalsePositives)
	next.Recall = Recall(next.TruePositives, next.FalseNegatives)
	next.F1 = F1(next.Precision, next.Recall)
	return next
}
