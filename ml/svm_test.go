package ml

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRBFScoreScenario(t *testing.T) {
	model := &RBFModel{
		SupportVectors: mat.NewDense(1, 2, []float64{0, 0}),
		DualCoef:       []float64{1},
		Gamma:          0.5,
	}
	score, err := model.Score([]float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(score, math.Exp(-1)) {
		t.Fatalf("expected %v, got %v", math.Exp(-1), score)
	}

	post := &RBFPosterior{
		PDF:         []Bin{{0, 0.5, 0.80}, {0.5, math.Inf(1), 0.95}},
		FemaleGroup: 1,
		MaleGroup:   0,
	}
	sex, prob, err := post.Posterior(score)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sex != Female || prob != 0.80 {
		t.Fatalf("expected female 0.80, got %v %v", sex, prob)
	}
}

func TestRBFScoreSeveralVectors(t *testing.T) {
	model := &RBFModel{
		SupportVectors: mat.NewDense(2, 1, []float64{0, 2}),
		DualCoef:       []float64{0.5, -1.5},
		Gamma:          1,
		Rho:            0.25,
	}
	score, err := model.Score([]float64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 0.25 + 0.5*math.Exp(-1) - 1.5*math.Exp(-1)
	if !almostEqual(score, want) {
		t.Fatalf("expected %v, got %v", want, score)
	}
	if model.InputWidth() != 1 {
		t.Fatalf("expected width 1, got %d", model.InputWidth())
	}
}

func TestRBFScoreDimensionMismatch(t *testing.T) {
	model := &RBFModel{
		SupportVectors: mat.NewDense(1, 2, []float64{0, 0}),
		DualCoef:       []float64{1},
		Gamma:          0.5,
	}
	for _, features := range [][]float64{{1}, {1, 2, 3}} {
		if _, err := model.Score(features); !errors.Is(err, ErrDimension) {
			t.Fatalf("expected dimension error for %v, got %v", features, err)
		}
	}
}

func TestRBFPosteriorPolarityAndLookup(t *testing.T) {
	post := &RBFPosterior{
		PDF:         []Bin{{0, 1, 0.6}, {1, 2, 0.75}, {2, 4, 0.9}},
		FemaleGroup: 2,
		MaleGroup:   1,
	}
	cases := []struct {
		score float64
		sex   Sex
		prob  float64
	}{
		{-0.2, Male, 0.6},
		{0, Female, 0.6},
		{1, Female, 0.75},
		{-1.99, Male, 0.75},
		{3.5, Female, 0.9},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			sex, prob, err := post.Posterior(tc.score)
			if err != nil {
				t.Fatalf("score %v: unexpected error: %v", tc.score, err)
			}
			if sex != tc.sex || prob != tc.prob {
				t.Fatalf("score %v: expected %v %v, got %v %v", tc.score, tc.sex, tc.prob, sex, prob)
			}
		}
	}

	inverted := &RBFPosterior{PDF: post.PDF, FemaleGroup: -1, MaleGroup: 1}
	if sex, _, _ := inverted.Posterior(-0.5); sex != Female {
		t.Fatalf("expected female for negative score, got %v", sex)
	}
}

func TestRBFPosteriorOutsideTable(t *testing.T) {
	post := &RBFPosterior{
		PDF:         []Bin{{0, 1, 0.6}, {1, 2, 0.75}},
		FemaleGroup: 1,
		MaleGroup:   0,
	}
	for _, score := range []float64{2, -7.5} {
		if _, _, err := post.Posterior(score); !errors.Is(err, ErrLookup) {
			t.Fatalf("score %v: expected lookup error, got %v", score, err)
		}
	}
}

func TestRBFPosteriorValidate(t *testing.T) {
	cases := map[string][]Bin{
		"empty":        nil,
		"not at zero":  {{0.1, 1, 0.5}},
		"gap":          {{0, 1, 0.5}, {1.5, 2, 0.6}},
		"overlap":      {{0, 1, 0.5}, {0.8, 2, 0.6}},
		"inverted bin": {{0, 0, 0.5}},
		"probability":  {{0, 1, 1.5}},
	}
	for name, bins := range cases {
		post := &RBFPosterior{PDF: bins, FemaleGroup: 1, MaleGroup: 0}
		if err := post.validate(); !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}

func TestRBFPosteriorDeterministic(t *testing.T) {
	post := &RBFPosterior{
		PDF:         []Bin{{0, 0.5, 0.80}, {0.5, 2, 0.90}, {2, math.Inf(1), 0.97}},
		FemaleGroup: 1,
		MaleGroup:   0,
	}
	copied := &RBFPosterior{
		PDF:         append([]Bin(nil), post.PDF...),
		FemaleGroup: post.FemaleGroup,
		MaleGroup:   post.MaleGroup,
	}

	for _, score := range []float64{0, 0.5, -0.5, 2, -2, 1e6} {
		sex, prob, err := post.Posterior(score)
		if err != nil {
			t.Fatalf("score %v: unexpected error: %v", score, err)
		}
		for i := 0; i < 10; i++ {
			s, p, err := post.Posterior(score)
			if err != nil || s != sex || p != prob {
				t.Fatalf("score %v: call %d gave %v %v %v, first gave %v %v", score, i, s, p, err, sex, prob)
			}
			s, p, err = copied.Posterior(score)
			if err != nil || s != sex || p != prob {
				t.Fatalf("score %v: copied table gave %v %v %v, original gave %v %v", score, s, p, err, sex, prob)
			}
		}
	}

	// bin edges belong to the upper bin
	if _, prob, _ := post.Posterior(-0.5); prob != 0.90 {
		t.Fatalf("expected 0.90 at |score| 0.5, got %v", prob)
	}
	if _, prob, _ := post.Posterior(1e6); prob != 0.97 {
		t.Fatalf("expected open last bin 0.97, got %v", prob)
	}
}
