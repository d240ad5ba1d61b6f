package ml

import "fmt"

// DerivedPerLevel is the number of columns appended after each
// cross-section level: circularity, Imax/Imin and Imin/Imax.
const DerivedPerLevel = 3

// CSGLayout describes where the morphometric quantities sit inside one
// cross-section group of a raw row. Offsets are 0-based within the group.
type CSGLayout struct {
	GroupWidth  int `yaml:"group_width"`
	MaxDistance int `yaml:"max_distance"`
	Area        int `yaml:"area"`
	Perimeter   int `yaml:"perimeter"`
	Imax        int `yaml:"imax"`
	Imin        int `yaml:"imin"`
}

// DefaultCSGLayout matches rows exported as
// MaxDistance, Area, Perimeter, Imax, Imin per level.
var DefaultCSGLayout = CSGLayout{
	GroupWidth:  5,
	MaxDistance: 0,
	Area:        1,
	Perimeter:   2,
	Imax:        3,
	Imin:        4,
}

// DeriveFeatures extends a raw CSG row using DefaultCSGLayout.
func DeriveFeatures(raw []float64) (FeatureVector, error) {
	return DefaultCSGLayout.Derive(raw)
}

// Derive copies every level's raw group and follows it with the level's
// circularity and the two principal moment ratios. Normalization indices
// point into this exact column order.
func (l CSGLayout) Derive(raw []float64) (FeatureVector, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if len(raw) == 0 || len(raw)%l.GroupWidth != 0 {
		return nil, fmt.Errorf("raw row of %d values is not a whole number of %d-column levels: %w", len(raw), l.GroupWidth, ErrDimension)
	}
	if err := checkFinite(raw); err != nil {
		return nil, err
	}

	levels := len(raw) / l.GroupWidth
	features := make(FeatureVector, 0, l.Width(levels))
	for level := 0; level < levels; level++ {
		group := raw[level*l.GroupWidth : (level+1)*l.GroupWidth]
		circularity, err := CalculateCircularity(group[l.Area], group[l.Perimeter])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level+1, err)
		}
		maxMin, minMax, err := CalculateMomentRatios(group[l.Imax], group[l.Imin])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level+1, err)
		}
		features = append(features, group...)
		features = append(features, circularity, maxMin, minMax)
	}
	return features, nil
}

// Width is the derived vector length for a row with the given levels.
func (l CSGLayout) Width(levels int) int {
	return levels * (l.GroupWidth + DerivedPerLevel)
}

// Validate rejects layouts whose offsets fall outside the group or collide.
func (l CSGLayout) Validate() error {
	if l.GroupWidth < 5 {
		return fmt.Errorf("csg group width %d is below the 5 required quantities: %w", l.GroupWidth, ErrConfig)
	}
	seen := make(map[int]bool, 5)
	for _, offset := range []int{l.MaxDistance, l.Area, l.Perimeter, l.Imax, l.Imin} {
		if offset < 0 || offset >= l.GroupWidth {
			return fmt.Errorf("csg offset %d outside group width %d: %w", offset, l.GroupWidth, ErrConfig)
		}
		if seen[offset] {
			return fmt.Errorf("csg offset %d used twice: %w", offset, ErrConfig)
		}
		seen[offset] = true
	}
	return nil
}
