// Package scaler applies the per-feature standardization used when the
// classifier was trained.
package scaler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
)

// Params are the exported standard-scaler statistics.
type Params struct {
	Mean  []float64 `yaml:"scaler_mean"`
	Scale []float64 `yaml:"scaler_scale"`
}

// Scaler is immutable after New and safe for concurrent use.
type Scaler struct {
	mean  []float64
	scale []float64
}

// New validates p against the expected feature width and copies it.
func New(p Params, width int) (*Scaler, error) {
	if width <= 0 {
		return nil, fmt.Errorf("feature width must be positive, got %d", width)
	}
	if len(p.Mean) != len(p.Scale) {
		return nil, fmt.Errorf("scaler_mean has %d values but scaler_scale has %d", len(p.Mean), len(p.Scale))
	}
	if len(p.Mean) != width {
		return nil, fmt.Errorf("scaler parameters have %d values, expected %d", len(p.Mean), width)
	}
	for i := range p.Scale {
		if p.Scale[i] == 0 || math.IsNaN(p.Scale[i]) || math.IsInf(p.Scale[i], 0) {
			return nil, fmt.Errorf("scaler_scale[%d] must be finite and non-zero, got %v", i, p.Scale[i])
		}
		if math.IsNaN(p.Mean[i]) || math.IsInf(p.Mean[i], 0) {
			return nil, fmt.Errorf("scaler_mean[%d] must be finite, got %v", i, p.Mean[i])
		}
	}

	return &Scaler{
		mean:  append([]float64(nil), p.Mean...),
		scale: append([]float64(nil), p.Scale...),
	}, nil
}

// Width is the number of features the scaler accepts.
func (s *Scaler) Width() int { return len(s.mean) }


// Standardize returns (features[i] - mean[i]) / scale[i] at full precision.
// The input slice is not modified.
func (s *Scaler) Standardize(features []float64) ([]float64, error) {
	if len(features) != len(s.mean) {
		return nil, apperr.New(apperr.InvalidInput, "standardize",
			"expected %d features, got %d", len(s.mean), len(features))
	}

	out := make([]float64, len(features))
	floats.SubTo(out, features, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}
