package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// VertebraKey builds the description-table key used on the vertebral path.
func VertebraKey(population, vertebra string) string {
	return strings.TrimSpace(population) + " " + strings.TrimSpace(vertebra)
}

// ElementKey builds the description-table key used on the long-bone path,
// e.g. ElementKey("Femur", "Left") == "Femur Left".
func ElementKey(bone, side string) string {
	return strings.TrimSpace(bone) + " " + strings.TrimSpace(side)
}

// Resolve returns the 1-based classifier index configured for an element
// and slot.
func (c *Container) Resolve(method Method, element string, slot Slot) (int, error) {
	table, ok := c.Descriptions[method]
	if !ok {
		return 0, fmt.Errorf("no description table for method %q: %w", method, ErrConfig)
	}
	for _, row := range table {
		if row.Key != element {
			continue
		}
		index, ok := row.Slots[slot]
		if !ok || index <= 0 {
			return 0, fmt.Errorf("%s %q has no classifier in slot %d: %w", method, element, slot, ErrLookup)
		}
		return index, nil
	}
	return 0, fmt.Errorf("%s has no entry for %q: %w", method, element, ErrLookup)
}

// Elements lists the element keys of a method in table order.
func (c *Container) Elements(method Method) ([]string, error) {
	table, ok := c.Descriptions[method]
	if !ok {
		return nil, fmt.Errorf("no description table for method %q: %w", method, ErrConfig)
	}
	keys := make([]string, len(table))
	for i, row := range table {
		keys[i] = row.Key
	}
	return keys, nil
}

// Slots lists the configured slots of an element in ascending order.
func (c *Container) Slots(method Method, element string) ([]Slot, error) {
	table, ok := c.Descriptions[method]
	if !ok {
		return nil, fmt.Errorf("no description table for method %q: %w", method, ErrConfig)
	}
	for _, row := range table {
		if row.Key != element {
			continue
		}
		slots := make([]Slot, 0, len(row.Slots))
		for slot, index := range row.Slots {
			if index > 0 {
				slots = append(slots, slot)
			}
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
		return slots, nil
	}
	return nil, fmt.Errorf("%s has no entry for %q: %w", method, element, ErrLookup)
}

// classifier returns the parameters behind a 1-based classifier index.
func (c *Container) classifier(index int) (*NormalizationCoefficients, Model, Posterior, error) {
	if index <= 0 || index > len(c.Models) || index > len(c.Posteriors) {
		return nil, nil, nil, fmt.Errorf("classifier %d out of range: %w", index, ErrConfig)
	}
	var norm *NormalizationCoefficients
	if index <= len(c.Normalizations) {
		norm = &c.Normalizations[index-1]
	}
	return norm, c.Models[index-1], c.Posteriors[index-1], nil
}

// Validate checks the cross-table invariants of a container. Loaders call
// it once; evaluation assumes a validated container.
func (c *Container) Validate() error {
	switch c.Datatype {
	case DatatypeCSG, DatatypeVertebrae:
	default:
		return fmt.Errorf("unknown datatype %q: %w", c.Datatype, ErrConfig)
	}
	if len(c.Descriptions) == 0 {
		return fmt.Errorf("container %q has no description tables: %w", c.Name, ErrConfig)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("container %q has no models: %w", c.Name, ErrConfig)
	}
	if len(c.Posteriors) != len(c.Models) {
		return fmt.Errorf("container %q has %d models and %d posteriors: %w", c.Name, len(c.Models), len(c.Posteriors), ErrConfig)
	}
	// The vertebral path feeds raw values to the models, so only long-bone
	// containers carry normalization coefficients.
	if c.Datatype == DatatypeCSG && len(c.Normalizations) != len(c.Models) {
		return fmt.Errorf("container %q has %d models and %d normalizations: %w", c.Name, len(c.Models), len(c.Normalizations), ErrConfig)
	}

	for _, method := range c.Methods() {
		seen := make(map[string]bool)
		for _, row := range c.Descriptions[method] {
			if seen[row.Key] {
				return fmt.Errorf("%s lists %q twice: %w", method, row.Key, ErrConfig)
			}
			seen[row.Key] = true
			for slot, index := range row.Slots {
				if slot < MinSlot || slot > MaxSlot {
					return fmt.Errorf("%s %q uses slot %d: %w", method, row.Key, slot, ErrConfig)
				}
				if index == 0 {
					continue
				}
				if _, _, _, err := c.classifier(index); err != nil {
					return fmt.Errorf("%s %q slot %d: %w", method, row.Key, slot, err)
				}
			}
		}
	}

	for i, model := range c.Models {
		if err := c.validateClassifier(i+1, model, c.Posteriors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) validateClassifier(index int, model Model, posterior Posterior) error {
	if model == nil || posterior == nil {
		return fmt.Errorf("classifier %d is missing parameters: %w", index, ErrConfig)
	}
	if model.Kind() != posterior.Kind() {
		return fmt.Errorf("classifier %d pairs a %s model with a %s posterior: %w", index, model.Kind(), posterior.Kind(), ErrConfig)
	}

	switch m := model.(type) {
	case *LDAModel:
		if len(m.Weights) < 2 {
			return fmt.Errorf("classifier %d has %d lda weights: %w", index, len(m.Weights), ErrConfig)
		}
	case *RBFModel:
		if m.SupportVectors == nil {
			return fmt.Errorf("classifier %d has no support vectors: %w", index, ErrConfig)
		}
		rows, _ := m.SupportVectors.Dims()
		if rows != len(m.DualCoef) {
			return fmt.Errorf("classifier %d has %d support vectors and %d coefficients: %w", index, rows, len(m.DualCoef), ErrConfig)
		}
		if !(m.Gamma > 0) {
			return fmt.Errorf("classifier %d has gamma %g: %w", index, m.Gamma, ErrConfig)
		}
	}

	switch p := posterior.(type) {
	case *LDAPosterior:
		if p.CentroidFemale == p.SectioningPoint || p.CentroidMale == p.SectioningPoint {
			return fmt.Errorf("classifier %d has a centroid on the sectioning point: %w", index, ErrConfig)
		}
	case *RBFPosterior:
		if err := p.validate(); err != nil {
			return fmt.Errorf("classifier %d: %w", index, err)
		}
	}

	if c.Datatype != DatatypeCSG {
		return nil
	}
	norm := c.Normalizations[index-1]
	if err := norm.validate(); err != nil {
		return fmt.Errorf("classifier %d: %w", index, err)
	}
	if len(norm.VariableIndices) != model.InputWidth() {
		return fmt.Errorf("classifier %d normalizes %d variables for a model of width %d: %w",
			index, len(norm.VariableIndices), model.InputWidth(), ErrConfig)
	}
	for i, s := range norm.Std {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("classifier %d has non-finite std at %d: %w", index, i, ErrConfig)
		}
	}
	return nil
}
