package ml

import (
	"fmt"
	"strings"
)

// ModelKind is the explicit tag stored with model and posterior parameters.
// It is fixed when a container is loaded and never inferred from shapes.
type ModelKind string

const (
	KindLDA ModelKind = "lda"
	KindRBF ModelKind = "rbf"
)

// ParseModelKind accepts the tags used in container files.
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lda", "linear":
		return KindLDA, nil
	case "rbf", "svm", "rbf-svm", "svm-rbf":
		return KindRBF, nil
	default:
		return "", fmt.Errorf("unknown model kind %q: %w", s, ErrConfig)
	}
}

// Model computes an unbounded discriminant score from a feature vector.
type Model interface {
	Kind() ModelKind
	// InputWidth is the feature length the model accepts.
	InputWidth() int
	Score(features []float64) (float64, error)
}

// Posterior converts a discriminant score into a sex and the probability
// of that prediction.
type Posterior interface {
	Kind() ModelKind
	Posterior(score float64) (Sex, float64, error)
}
