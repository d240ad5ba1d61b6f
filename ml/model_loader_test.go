package ml

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestLoadContainerYAML(t *testing.T) {
	c, err := LoadContainer("testdata/csg.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "csg-test" || c.Datatype != DatatypeCSG {
		t.Fatalf("unexpected header: %q %q", c.Name, c.Datatype)
	}
	if _, ok := c.Models[0].(*LDAModel); !ok {
		t.Fatalf("expected lda model, got %T", c.Models[0])
	}
	rbf, ok := c.Posteriors[1].(*RBFPosterior)
	if !ok {
		t.Fatalf("expected rbf posterior, got %T", c.Posteriors[1])
	}
	if !math.IsInf(rbf.PDF[1].High, 1) {
		t.Fatalf("expected open last bin, got %v", rbf.PDF[1].High)
	}

	result, err := Evaluate(c, "SVM", "Femur Left", 1, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sex != Female || result.Probability != 0.80 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := c.Resolve("LDA", "Femur Left", 2); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error for unset slot, got %v", err)
	}
}

func TestLoadContainerJSON(t *testing.T) {
	c, err := LoadContainer("testdata/vertebrae.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Datatype != DatatypeVertebrae {
		t.Fatalf("unexpected datatype %q", c.Datatype)
	}
	if c.Models[1].Kind() != KindRBF {
		t.Fatalf("expected rbf model, got %s", c.Models[1].Kind())
	}

	result, err := EvaluateVertebra(c, "SVM", "Greek", "T12", []float64{16, 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 0.05 + 1 - math.Exp(-0.1*8)
	if !almostEqual(result.Score, want) {
		t.Fatalf("expected score %v, got %v", want, result.Score)
	}
	if result.Sex != Male || result.Probability != 0.9 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLoadContainerErrors(t *testing.T) {
	if _, err := LoadContainer("testdata/broken.yaml"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := LoadContainer("testdata/model.mat"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error for unknown extension, got %v", err)
	}
	if _, err := LoadContainer("testdata/missing.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := DecodeContainer(strings.NewReader("{"), FormatJSON); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error for malformed json, got %v", err)
	}
	if _, err := ParseModelKind("tree"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
