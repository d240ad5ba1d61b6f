package ml

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v2"
)

// Format is the encoding of a container file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the container format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported container file %q: %w", path, ErrConfig)
	}
}

type containerFile struct {
	Name           string                       `json:"name" yaml:"name"`
	Datatype       string                       `json:"datatype" yaml:"datatype"`
	Descriptions   map[string][]descriptionFile `json:"descriptions" yaml:"descriptions"`
	Normalizations []normalizationFile          `json:"normalizations" yaml:"normalizations"`
	Models         []modelFile                  `json:"models" yaml:"models"`
	Posteriors     []posteriorFile              `json:"posteriors" yaml:"posteriors"`
}

type descriptionFile struct {
	Key   string      `json:"key" yaml:"key"`
	Slots map[int]int `json:"slots" yaml:"slots"`
}

type normalizationFile struct {
	Variables []int     `json:"variables" yaml:"variables"`
	Mean      []float64 `json:"mean" yaml:"mean"`
	Std       []float64 `json:"std" yaml:"std"`
}

type modelFile struct {
	Kind           string      `json:"kind" yaml:"kind"`
	Weights        []float64   `json:"weights,omitempty" yaml:"weights,omitempty"`
	SupportVectors [][]float64 `json:"support_vectors,omitempty" yaml:"support_vectors,omitempty"`
	DualCoef       []float64   `json:"dual_coef,omitempty" yaml:"dual_coef,omitempty"`
	Gamma          float64     `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	Rho            float64     `json:"rho,omitempty" yaml:"rho,omitempty"`
}

// posteriorFile stores each pdf bin as [low, high, probability]. A null
// high bound means the bin is open to +Inf.
type posteriorFile struct {
	Kind            string       `json:"kind" yaml:"kind"`
	SectioningPoint float64      `json:"sectioning_point,omitempty" yaml:"sectioning_point,omitempty"`
	CentroidFemale  float64      `json:"centroid_female,omitempty" yaml:"centroid_female,omitempty"`
	CentroidMale    float64      `json:"centroid_male,omitempty" yaml:"centroid_male,omitempty"`
	PDF             [][]*float64 `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	FemaleGroup     float64      `json:"female_group,omitempty" yaml:"female_group,omitempty"`
	MaleGroup       float64      `json:"male_group,omitempty" yaml:"male_group,omitempty"`
}

// LoadContainer reads and validates a container file.
func LoadContainer(path string) (*Container, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	c, err := DecodeContainer(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}

// DecodeContainer parses a container, resolves every model and posterior
// variant from its kind tag and validates the result.
func DecodeContainer(r io.Reader, format Format) (*Container, error) {
	var raw containerFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json container: %v: %w", err, ErrConfig)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode yaml container: %v: %w", err, ErrConfig)
		}
	default:
		return nil, fmt.Errorf("unsupported container format %q: %w", format, ErrConfig)
	}

	c, err := raw.build()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (f containerFile) build() (*Container, error) {
	c := &Container{
		Name:         f.Name,
		Datatype:     Datatype(strings.ToLower(f.Datatype)),
		Descriptions: make(map[Method]DescriptionTable, len(f.Descriptions)),
	}
	for method, rows := range f.Descriptions {
		table := make(DescriptionTable, len(rows))
		for i, row := range rows {
			slots := make(map[Slot]int, len(row.Slots))
			for slot, index := range row.Slots {
				slots[Slot(slot)] = index
			}
			table[i] = DescriptionRow{Key: row.Key, Slots: slots}
		}
		c.Descriptions[Method(method)] = table
	}

	for _, n := range f.Normalizations {
		c.Normalizations = append(c.Normalizations, NormalizationCoefficients{
			VariableIndices: n.Variables,
			Mean:            n.Mean,
			Std:             n.Std,
		})
	}

	for i, m := range f.Models {
		model, err := m.build()
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i+1, err)
		}
		c.Models = append(c.Models, model)
	}
	for i, p := range f.Posteriors {
		posterior, err := p.build()
		if err != nil {
			return nil, fmt.Errorf("posterior %d: %w", i+1, err)
		}
		c.Posteriors = append(c.Posteriors, posterior)
	}
	return c, nil
}

func (m modelFile) build() (Model, error) {
	kind, err := ParseModelKind(m.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindLDA:
		return &LDAModel{Weights: m.Weights}, nil
	default:
		if len(m.SupportVectors) == 0 {
			return nil, fmt.Errorf("rbf model without support vectors: %w", ErrConfig)
		}
		cols := len(m.SupportVectors[0])
		if cols == 0 {
			return nil, fmt.Errorf("rbf support vectors have no columns: %w", ErrConfig)
		}
		data := make([]float64, 0, len(m.SupportVectors)*cols)
		for i, row := range m.SupportVectors {
			if len(row) != cols {
				return nil, fmt.Errorf("support vector %d has %d columns, want %d: %w", i+1, len(row), cols, ErrConfig)
			}
			data = append(data, row...)
		}
		return &RBFModel{
			SupportVectors: mat.NewDense(len(m.SupportVectors), cols, data),
			DualCoef:       m.DualCoef,
			Gamma:          m.Gamma,
			Rho:            m.Rho,
		}, nil
	}
}

func (p posteriorFile) build() (Posterior, error) {
	kind, err := ParseModelKind(p.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindLDA:
		return &LDAPosterior{
			SectioningPoint: p.SectioningPoint,
			CentroidFemale:  p.CentroidFemale,
			CentroidMale:    p.CentroidMale,
		}, nil
	default:
		bins := make([]Bin, len(p.PDF))
		for i, row := range p.PDF {
			if len(row) != 3 || row[0] == nil || row[2] == nil {
				return nil, fmt.Errorf("pdf row %d must be [low, high, probability]: %w", i+1, ErrConfig)
			}
			high := math.Inf(1)
			if row[1] != nil {
				high = *row[1]
			}
			bins[i] = Bin{Low: *row[0], High: high, Probability: *row[2]}
		}
		return &RBFPosterior{
			PDF:         bins,
			FemaleGroup: p.FemaleGroup,
			MaleGroup:   p.MaleGroup,
		}, nil
	}
}
