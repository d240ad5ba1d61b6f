package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LDAModel is a linear discriminant: Weights[0] is the intercept and the
// remaining weights pair with the features in order.
type LDAModel struct {
	Weights []float64
}

func (m *LDAModel) Kind() ModelKind { return KindLDA }

func (m *LDAModel) InputWidth() int { return len(m.Weights) - 1 }

func (m *LDAModel) Score(features []float64) (float64, error) {
	if len(m.Weights) != 1+len(features) {
		return 0, fmt.Errorf("lda model has %d weights for %d features: %w", len(m.Weights), len(features), ErrDimension)
	}
	return m.Weights[0] + floats.Dot(m.Weights[1:], features), nil
}

// LDAPosterior places the decision boundary at SectioningPoint. The group
// centroids only fix which side of the boundary is female.
type LDAPosterior struct {
	SectioningPoint float64
	CentroidFemale  float64
	CentroidMale    float64
}

func (p *LDAPosterior) Kind() ModelKind { return KindLDA }

// Posterior predicts the side of the sectioning point the score falls on.
// A score exactly on the boundary counts as non-negative.
func (p *LDAPosterior) Posterior(score float64) (Sex, float64, error) {
	if math.IsNaN(score) {
		return Female, 0, fmt.Errorf("lda posterior of NaN score: %w", ErrData)
	}
	below, above := p.polarity()
	dist := score - p.SectioningPoint
	if dist < 0 {
		return below, boundaryProbability(dist), nil
	}
	return above, boundaryProbability(dist), nil
}

// ClassProbabilities returns the probability of each class for a score.
// The two values always sum to one.
func (p *LDAPosterior) ClassProbabilities(score float64) (female, male float64) {
	dist := score - p.SectioningPoint
	negative := logistic(-2 * dist)
	positive := logistic(2 * dist)
	below, _ := p.polarity()
	if below == Female {
		return negative, positive
	}
	return positive, negative
}

// polarity returns the sex predicted below and at-or-above the sectioning point.
func (p *LDAPosterior) polarity() (below, above Sex) {
	if p.CentroidFemale < p.CentroidMale {
		return Female, Male
	}
	return Male, Female
}

// boundaryProbability is exp(|d|)/(exp(|d|)+exp(-|d|)), written so that it
// cannot overflow and is exactly 0.5 at d == 0.
func boundaryProbability(dist float64) float64 {
	return logistic(2 * math.Abs(dist))
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
