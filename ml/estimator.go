package ml

import (
	"fmt"
	"sort"
)

// Evaluate runs one classifier slot for an element: resolve the classifier,
// normalize the features (long-bone containers only), score and convert the
// score into a sex and probability.
func Evaluate(c *Container, method Method, element string, slot Slot, features []float64) (Estimation, error) {
	if slot < MinSlot || slot > MaxSlot {
		return Estimation{}, fmt.Errorf("slot %d outside %d..%d: %w", slot, MinSlot, MaxSlot, ErrLookup)
	}
	index, err := c.Resolve(method, element, slot)
	if err != nil {
		return Estimation{}, err
	}
	norm, model, posterior, err := c.classifier(index)
	if err != nil {
		return Estimation{}, err
	}

	input := features
	if c.Datatype == DatatypeCSG {
		if norm == nil {
			return Estimation{}, fmt.Errorf("classifier %d has no normalization: %w", index, ErrConfig)
		}
		if input, err = Normalize(features, *norm); err != nil {
			return Estimation{}, fmt.Errorf("classifier %d: %w", index, err)
		}
	} else if err := checkFinite(features); err != nil {
		return Estimation{}, err
	}

	score, err := model.Score(input)
	if err != nil {
		return Estimation{}, fmt.Errorf("classifier %d: %w", index, err)
	}
	sex, probability, err := posterior.Posterior(score)
	if err != nil {
		return Estimation{}, fmt.Errorf("classifier %d: %w", index, err)
	}
	return Estimation{
		Slot:        slot,
		Classifier:  index,
		Sex:         sex,
		Probability: probability,
		Score:       score,
	}, nil
}

// EvaluateSlots evaluates every selected slot independently, in ascending
// slot order. Duplicate slots are evaluated once. The first failure aborts
// the whole request; no partial results are returned.
func EvaluateSlots(c *Container, method Method, element string, slots []Slot, features []float64) ([]Estimation, error) {
	selected := normalizeSlots(slots)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no classifier slot selected: %w", ErrLookup)
	}
	results := make([]Estimation, 0, len(selected))
	for _, slot := range selected {
		result, err := Evaluate(c, method, element, slot, features)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// EvaluateCSG derives the extended feature vector from a raw cross-section
// row and evaluates the selected slots.
func EvaluateCSG(c *Container, layout CSGLayout, method Method, element string, slots []Slot, raw []float64) ([]Estimation, error) {
	if c.Datatype != DatatypeCSG {
		return nil, fmt.Errorf("container %q holds %s classifiers, not csg: %w", c.Name, c.Datatype, ErrDatatype)
	}
	features, err := layout.Derive(raw)
	if err != nil {
		return nil, err
	}
	return EvaluateSlots(c, method, element, slots, features)
}

// EvaluateVertebra scores raw vertebral measurements with the single
// classifier configured for a population and vertebra.
func EvaluateVertebra(c *Container, method Method, population, vertebra string, values []float64) (Estimation, error) {
	if c.Datatype != DatatypeVertebrae {
		return Estimation{}, fmt.Errorf("container %q holds %s classifiers, not vertebrae: %w", c.Name, c.Datatype, ErrDatatype)
	}
	return Evaluate(c, method, VertebraKey(population, vertebra), MinSlot, values)
}

func normalizeSlots(slots []Slot) []Slot {
	seen := make(map[Slot]bool, len(slots))
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
