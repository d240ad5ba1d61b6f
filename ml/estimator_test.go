package ml

import (
	"errors"
	"math"
	"testing"
)

func TestEvaluateLDAScenario(t *testing.T) {
	c := testContainer(t)
	result, err := Evaluate(c, "LDA", "Femur Left", 1, []float64{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 7 {
		t.Fatalf("expected score 7, got %v", result.Score)
	}
	if result.Sex != Male || math.Abs(result.Probability-0.9820) > 1e-4 {
		t.Fatalf("expected male ~0.9820, got %v %v", result.Sex, result.Probability)
	}
	if result.Slot != 1 || result.Classifier != 1 {
		t.Fatalf("unexpected slot/classifier: %+v", result)
	}
}

func TestEvaluateRBFScenario(t *testing.T) {
	c := testContainer(t)
	result, err := Evaluate(c, "SVM", "Femur Left", 1, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(result.Score, math.Exp(-1)) {
		t.Fatalf("expected score %v, got %v", math.Exp(-1), result.Score)
	}
	if result.Sex != Female || result.Probability != 0.80 {
		t.Fatalf("expected female 0.80, got %v %v", result.Sex, result.Probability)
	}
}

func TestEvaluateSlotsOrdered(t *testing.T) {
	c := testContainer(t)
	results, err := EvaluateSlots(c, "LDA", "Humerus Right", []Slot{3, 1, 3}, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Slot != 1 || results[1].Slot != 3 {
		t.Fatalf("expected ascending slots, got %d and %d", results[0].Slot, results[1].Slot)
	}
	if results[0].Score != 3 || results[0].Sex != Female {
		t.Fatalf("unexpected slot 1 result: %+v", results[0])
	}
	if results[1].Classifier != 2 || results[1].Sex != Female {
		t.Fatalf("unexpected slot 3 result: %+v", results[1])
	}

	single, err := Evaluate(c, "LDA", "Humerus Right", 3, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single != results[1] {
		t.Fatalf("slots are not independent: %+v vs %+v", single, results[1])
	}
}

func TestEvaluateSlotsErrors(t *testing.T) {
	c := testContainer(t)
	if _, err := EvaluateSlots(c, "LDA", "Humerus Right", nil, []float64{1, 1}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error for empty selection, got %v", err)
	}
	if _, err := EvaluateSlots(c, "LDA", "Humerus Right", []Slot{1, 2}, []float64{1, 1}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error for unset slot, got %v", err)
	}
	if _, err := EvaluateSlots(c, "LDA", "Humerus Right", []Slot{4}, []float64{1, 1}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error for unknown slot, got %v", err)
	}
	if _, err := EvaluateSlots(c, "SVM", "Femur Left", []Slot{1}, []float64{1}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestEvaluateZeroStd(t *testing.T) {
	c := testContainer(t)
	c.Normalizations[0].Std = []float64{0}
	if _, err := Evaluate(c, "LDA", "Femur Left", 1, []float64{3}); !errors.Is(err, ErrData) {
		t.Fatalf("expected data error, got %v", err)
	}
}

func TestEvaluateCSG(t *testing.T) {
	c := testContainer(t)
	// variable 6 is the circularity of the first level
	c.Normalizations[0] = NormalizationCoefficients{
		VariableIndices: []int{6},
		Mean:            []float64{math.Pi / 4},
		Std:             []float64{0.5},
	}
	results, err := EvaluateCSG(c, DefaultCSGLayout, "LDA", "Femur Left", []Slot{1}, []float64{10, 100, 40, 200, 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !almostEqual(results[0].Score, 1) {
		t.Fatalf("unexpected results: %+v", results)
	}

	if _, err := EvaluateCSG(c, DefaultCSGLayout, "LDA", "Femur Left", []Slot{1}, []float64{1, 2, 3}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestEvaluateVertebra(t *testing.T) {
	c := &Container{
		Name:     "vertebrae",
		Datatype: DatatypeVertebrae,
		Descriptions: map[Method]DescriptionTable{
			"LDA": {{Key: VertebraKey("Greek", "T12"), Slots: map[Slot]int{1: 1}}},
		},
		Models:     []Model{&LDAModel{Weights: []float64{-10, 0.5, 0.25}}},
		Posteriors: []Posterior{&LDAPosterior{SectioningPoint: 0, CentroidFemale: -1.1, CentroidMale: 1.1}},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := EvaluateVertebra(c, "LDA", "Greek", "T12", []float64{16, 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 1 || result.Sex != Male {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := EvaluateVertebra(c, "LDA", "Greek", "L1", []float64{16, 12}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if _, err := EvaluateVertebra(c, "LDA", "Greek", "T12", []float64{16}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	if _, err := EvaluateVertebra(testContainer(t), "LDA", "Greek", "T12", []float64{16, 12}); !errors.Is(err, ErrDatatype) || !errors.Is(err, ErrConfig) {
		t.Fatalf("expected datatype error for csg container, got %v", err)
	}
	if _, err := EvaluateCSG(c, DefaultCSGLayout, "LDA", "Greek T12", []Slot{1}, []float64{10, 100, 40, 200, 50}); !errors.Is(err, ErrDatatype) {
		t.Fatalf("expected datatype error for vertebrae container, got %v", err)
	}
}

func TestRows(t *testing.T) {
	rows := Rows("S-01", "Femur Left", "LDA", []Estimation{
		{Slot: 1, Classifier: 4, Sex: Male, Probability: 0.98201, Score: 7},
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	values := rows[0].Values()
	if len(values) != len(RowColumns()) {
		t.Fatalf("values and columns differ: %d vs %d", len(values), len(RowColumns()))
	}
	want := []string{"S-01", "Femur Left", "LDA", "1", "4", "Male", "0.9820", "7.000000"}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("column %s: expected %q, got %q", RowColumns()[i], want[i], values[i])
		}
	}
}
