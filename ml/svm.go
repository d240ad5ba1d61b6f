package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RBFModel is a support vector machine with a radial basis function kernel.
type RBFModel struct {
	SupportVectors *mat.Dense
	DualCoef       []float64
	Gamma          float64
	Rho            float64
}

func (m *RBFModel) Kind() ModelKind { return KindRBF }

func (m *RBFModel) InputWidth() int {
	if m.SupportVectors == nil {
		return 0
	}
	_, cols := m.SupportVectors.Dims()
	return cols
}

// Score computes rho + sum_i dual_i * exp(-gamma * |sv_i - x|^2).
func (m *RBFModel) Score(features []float64) (float64, error) {
	if m.SupportVectors == nil {
		return 0, fmt.Errorf("rbf model without support vectors: %w", ErrConfig)
	}
	rows, cols := m.SupportVectors.Dims()
	if len(features) != cols {
		return 0, fmt.Errorf("rbf model has %d columns for %d features: %w", cols, len(features), ErrDimension)
	}
	if rows != len(m.DualCoef) {
		return 0, fmt.Errorf("rbf model has %d support vectors and %d coefficients: %w", rows, len(m.DualCoef), ErrConfig)
	}

	diff := make([]float64, cols)
	score := m.Rho
	for i := 0; i < rows; i++ {
		floats.SubTo(diff, m.SupportVectors.RawRowView(i), features)
		score += m.DualCoef[i] * math.Exp(-m.Gamma*floats.Dot(diff, diff))
	}
	return score, nil
}

// Bin is one [Low, High) interval of an empirical probability table.
type Bin struct {
	Low         float64
	High        float64
	Probability float64
}

func (b Bin) contains(v float64) bool {
	return v >= b.Low && v < b.High
}

// RBFPosterior reads the probability of a prediction from an empirical
// table indexed by the absolute score. The relative order of the group
// labels fixes which sign means male.
type RBFPosterior struct {
	PDF         []Bin
	FemaleGroup float64
	MaleGroup   float64
}

func (p *RBFPosterior) Kind() ModelKind { return KindRBF }

// Posterior fails with ErrLookup when |score| is outside every bin.
func (p *RBFPosterior) Posterior(score float64) (Sex, float64, error) {
	if math.IsNaN(score) {
		return Female, 0, fmt.Errorf("rbf posterior of NaN score: %w", ErrData)
	}
	bin, err := p.lookup(math.Abs(score))
	if err != nil {
		return Female, 0, err
	}

	negative, nonNegative := Female, Male
	if p.MaleGroup < p.FemaleGroup {
		negative, nonNegative = Male, Female
	}
	if score < 0 {
		return negative, bin.Probability, nil
	}
	return nonNegative, bin.Probability, nil
}

// lookup relies on the bins being sorted and non-overlapping, which
// Container.Validate checks.
func (p *RBFPosterior) lookup(v float64) (Bin, error) {
	i := sort.Search(len(p.PDF), func(i int) bool { return p.PDF[i].High > v })
	if i < len(p.PDF) && p.PDF[i].contains(v) {
		return p.PDF[i], nil
	}
	return Bin{}, fmt.Errorf("no posterior bin contains |score| %g: %w", v, ErrLookup)
}

func (p *RBFPosterior) validate() error {
	if len(p.PDF) == 0 {
		return fmt.Errorf("empty posterior table: %w", ErrConfig)
	}
	if p.MaleGroup == p.FemaleGroup {
		return fmt.Errorf("female and male group labels are equal: %w", ErrConfig)
	}
	if p.PDF[0].Low != 0 {
		return fmt.Errorf("posterior table starts at %g, not 0: %w", p.PDF[0].Low, ErrConfig)
	}
	for i, b := range p.PDF {
		if !(b.Low < b.High) {
			return fmt.Errorf("posterior bin %d is empty [%g, %g): %w", i, b.Low, b.High, ErrConfig)
		}
		if b.Probability < 0 || b.Probability > 1 || math.IsNaN(b.Probability) {
			return fmt.Errorf("posterior bin %d has probability %g: %w", i, b.Probability, ErrConfig)
		}
		if i > 0 && b.Low != p.PDF[i-1].High {
			return fmt.Errorf("posterior bins %d and %d are not contiguous: %w", i-1, i, ErrConfig)
		}
	}
	return nil
}
