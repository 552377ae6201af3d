// Package rule holds the pass/fail business rule applied to every measured
// value before persistence.
package rule

import (
	"math"

	"mfgstream/internal/model"
)

// DefaultThreshold is the pass threshold applied when none is configured.
const DefaultThreshold = 80.0

// Evaluator maps a measured value to a verdict against a fixed threshold.
// It is pure and total: the same input always yields the same verdict and no
// input can make it panic.
type Evaluator struct {
	threshold float64
}

func NewEvaluator(threshold float64) *Evaluator {
	if math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Evaluator{threshold: threshold}
}

// Evaluate returns PASS when measured >= threshold, FAIL otherwise.
// NaN never compares true, so invalid measurements fall through to FAIL.
func (e *Evaluator) Evaluate(measured float64) model.Status {
	if measured >= e.threshold {
		return model.StatusPass
	}
	return model.StatusFail
}
