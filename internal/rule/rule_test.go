package rule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"mfgstream/internal/model"
)

func TestEvaluate(t *testing.T) {
	e := NewEvaluator(DefaultThreshold)

	tests := []struct {
		name     string
		measured float64
		want     model.Status
	}{
		{"exactly at threshold", 80.0, model.StatusPass},
		{"above threshold", 99.9, model.StatusPass},
		{"far above threshold", 1e9, model.StatusPass},
		{"just below threshold", 79.999999, model.StatusFail},
		{"zero", 0, model.StatusFail},
		{"negative", -42.5, model.StatusFail},
		{"NaN fails closed", math.NaN(), model.StatusFail},
		{"positive infinity", math.Inf(1), model.StatusPass},
		{"negative infinity", math.Inf(-1), model.StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.measured))
		})
	}
}

func TestEvaluateCustomThreshold(t *testing.T) {
	e := NewEvaluator(50)
	assert.Equal(t, model.StatusPass, e.Evaluate(50))
	assert.Equal(t, model.StatusFail, e.Evaluate(49.99))
}

func TestNaNThresholdFallsBackToDefault(t *testing.T) {
	e := NewEvaluator(math.NaN())
	assert.Equal(t, model.StatusPass, e.Evaluate(DefaultThreshold))
	assert.Equal(t, model.StatusFail, e.Evaluate(DefaultThreshold-1))
}
