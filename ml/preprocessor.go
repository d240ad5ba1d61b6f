package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Normalize picks the variables listed in coeffs from features, in the
// listed order, and z-scores them with the stored mean and std.
func Normalize(features []float64, coeffs NormalizationCoefficients) ([]float64, error) {
	if err := coeffs.validate(); err != nil {
		return nil, err
	}

	selected := make([]float64, len(coeffs.VariableIndices))
	for i, idx := range coeffs.VariableIndices {
		if idx > len(features) {
			return nil, fmt.Errorf("variable %d requested from %d features: %w", idx, len(features), ErrDimension)
		}
		selected[i] = features[idx-1]
	}
	for i, s := range coeffs.Std {
		if s == 0 {
			return nil, fmt.Errorf("zero standard deviation for variable %d: %w", coeffs.VariableIndices[i], ErrData)
		}
	}

	floats.Sub(selected, coeffs.Mean)
	floats.Div(selected, coeffs.Std)
	return selected, nil
}

func (n NormalizationCoefficients) validate() error {
	if len(n.VariableIndices) == 0 {
		return fmt.Errorf("no normalization variables: %w", ErrConfig)
	}
	if len(n.Mean) != len(n.VariableIndices) || len(n.Std) != len(n.VariableIndices) {
		return fmt.Errorf("normalization has %d indices, %d means and %d stds: %w",
			len(n.VariableIndices), len(n.Mean), len(n.Std), ErrConfig)
	}
	seen := make(map[int]bool, len(n.VariableIndices))
	for _, idx := range n.VariableIndices {
		if idx <= 0 {
			return fmt.Errorf("normalization variable index %d is not positive: %w", idx, ErrConfig)
		}
		if seen[idx] {
			return fmt.Errorf("normalization variable index %d repeated: %w", idx, ErrConfig)
		}
		seen[idx] = true
	}
	return nil
}
