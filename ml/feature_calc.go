package ml

import (
	"fmt"
	"math"
)

// CalculateCircularity returns 4*pi*area/perimeter^2, which is 1 for a
// circular section and smaller for any other shape.
func CalculateCircularity(area, perimeter float64) (float64, error) {
	if perimeter == 0 {
		return 0, fmt.Errorf("circularity with zero perimeter: %w", ErrData)
	}
	return area * 4 * math.Pi / (perimeter * perimeter), nil
}

// CalculateMomentRatios returns Imax/Imin and its inverse.
func CalculateMomentRatios(imax, imin float64) (float64, float64, error) {
	if imax == 0 || imin == 0 {
		return 0, 0, fmt.Errorf("moment ratio with zero second moment (Imax=%g, Imin=%g): %w", imax, imin, ErrData)
	}
	return imax / imin, imin / imax, nil
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d is not finite (%g): %w", i, v, ErrData)
		}
	}
	return nil
}
