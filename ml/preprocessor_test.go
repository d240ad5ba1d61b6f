package ml

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	features := []float64{10, 20, 30, 40}
	coeffs := NormalizationCoefficients{
		VariableIndices: []int{4, 2},
		Mean:            []float64{30, 25},
		Std:             []float64{5, 2.5},
	}
	got, err := Normalize(features, coeffs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{2, -2}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if features[3] != 40 || coeffs.Mean[0] != 30 {
		t.Fatal("inputs were modified")
	}
}

func TestNormalizeErrors(t *testing.T) {
	features := []float64{1, 2, 3}
	cases := []struct {
		name   string
		coeffs NormalizationCoefficients
		want   error
	}{
		{"zero std", NormalizationCoefficients{[]int{1, 2}, []float64{0, 0}, []float64{1, 0}}, ErrData},
		{"out of range", NormalizationCoefficients{[]int{4}, []float64{0}, []float64{1}}, ErrDimension},
		{"duplicate", NormalizationCoefficients{[]int{2, 2}, []float64{0, 0}, []float64{1, 1}}, ErrConfig},
		{"non positive", NormalizationCoefficients{[]int{0}, []float64{0}, []float64{1}}, ErrConfig},
		{"length", NormalizationCoefficients{[]int{1, 2}, []float64{0}, []float64{1, 1}}, ErrConfig},
		{"empty", NormalizationCoefficients{}, ErrConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(features, tc.coeffs); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
