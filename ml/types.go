package ml

import (
	"fmt"
	"sort"
	"strings"
)

// Datatype tells which measurement family a container was trained on.
type Datatype string

const (
	DatatypeCSG       Datatype = "csg"
	DatatypeVertebrae Datatype = "vertebrae"
)

// Method names a description table inside a container, e.g. "LDA" or "SVM".
type Method string

// Slot is one of the classifier columns of a description table.
type Slot int

const (
	MinSlot Slot = 1
	MaxSlot Slot = 3
)

// Sex is the predicted class.
type Sex int

const (
	Female Sex = iota
	Male
)

func (s Sex) String() string {
	switch s {
	case Female:
		return "Female"
	case Male:
		return "Male"
	default:
		return fmt.Sprintf("Sex(%d)", int(s))
	}
}

func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sex) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "female", "f":
		*s = Female
	case "male", "m":
		*s = Male
	default:
		return fmt.Errorf("unknown sex %q: %w", string(text), ErrData)
	}
	return nil
}

// FeatureVector is positionally significant: normalization coefficients
// and model weights refer to positions, not names.
type FeatureVector []float64

// Sample is a single specimen submitted for estimation.
type Sample struct {
	ID       string
	Features FeatureVector
}

// Estimation is the outcome of evaluating one classifier.
type Estimation struct {
	Slot        Slot    `json:"slot"`
	Classifier  int     `json:"classifier"`
	Sex         Sex     `json:"sex"`
	Probability float64 `json:"probability"`
	Score       float64 `json:"score"`
}

// DescriptionRow maps one skeletal element to a 1-based classifier index per slot.
type DescriptionRow struct {
	Key   string
	Slots map[Slot]int
}

// DescriptionTable is the ordered set of rows for a single method.
type DescriptionTable []DescriptionRow

// NormalizationCoefficients select and standardize the variables a
// classifier expects. VariableIndices are 1-based positions into the
// feature vector.
type NormalizationCoefficients struct {
	VariableIndices []int
	Mean            []float64
	Std             []float64
}

// Container holds everything needed to score samples for one datatype.
// It is read-only once Validate has succeeded and may be shared freely
// between goroutines.
type Container struct {
	Name           string
	Datatype       Datatype
	Descriptions   map[Method]DescriptionTable
	Normalizations []NormalizationCoefficients
	Models         []Model
	Posteriors     []Posterior
}

// Methods returns the methods with a description table, sorted.
func (c *Container) Methods() []Method {
	methods := make([]Method, 0, len(c.Descriptions))
	for m := range c.Descriptions {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
