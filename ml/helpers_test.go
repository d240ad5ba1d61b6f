package ml

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// testContainer holds one LDA classifier (index 1) reading variable 1 and
// one RBF classifier (index 2) reading variables 1 and 2, both unscaled.
func testContainer(t *testing.T) *Container {
	t.Helper()
	c := &Container{
		Name:     "test",
		Datatype: DatatypeCSG,
		Descriptions: map[Method]DescriptionTable{
			"LDA": {
				{Key: "Femur Left", Slots: map[Slot]int{1: 1}},
				{Key: "Humerus Right", Slots: map[Slot]int{1: 1, 2: 0, 3: 2}},
			},
			"SVM": {
				{Key: "Femur Left", Slots: map[Slot]int{1: 2}},
			},
		},
		Normalizations: []NormalizationCoefficients{
			{VariableIndices: []int{1}, Mean: []float64{0}, Std: []float64{1}},
			{VariableIndices: []int{1, 2}, Mean: []float64{0, 0}, Std: []float64{1, 1}},
		},
		Models: []Model{
			&LDAModel{Weights: []float64{1, 2}},
			&RBFModel{
				SupportVectors: mat.NewDense(1, 2, []float64{0, 0}),
				DualCoef:       []float64{1},
				Gamma:          0.5,
				Rho:            0,
			},
		},
		Posteriors: []Posterior{
			&LDAPosterior{SectioningPoint: 5, CentroidFemale: 2, CentroidMale: 9},
			&RBFPosterior{
				PDF: []Bin{
					{Low: 0, High: 0.5, Probability: 0.80},
					{Low: 0.5, High: math.Inf(1), Probability: 0.95},
				},
				FemaleGroup: 1,
				MaleGroup:   0,
			},
		},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}
