// Package measurement reads specimen measurement tables and appends
// estimation rows to CSV result logs.
package measurement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"osteosex/ml"
)

// Options control how a measurement table is decoded.
type Options struct {
	// Encoding of the file: utf-8 (default), latin1, windows-1252 or utf-16.
	Encoding string
	// Comma is the field separator; defaults to ','.
	Comma rune
}

// Decoding returns the text encoding registered under name.
func Decoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-16", "utf16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// ParseComma turns a configured separator into a rune. "\t" and "tab"
// select tab separated files.
func ParseComma(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, fmt.Errorf("separator %q is not a single character", s)
	}
	return r, nil
}

// ReadSamples parses a table whose first column is the sample id and whose
// remaining columns are numeric measurements in positional order. A first
// row without any numeric measurement is taken as a header and skipped.
func ReadSamples(r io.Reader, opts Options) ([]ml.Sample, error) {
	enc, err := Decoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	samples := make([]ml.Sample, 0)
	width := -1
	first := true
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d has no measurements: %w", line, ml.ErrData)
		}

		if first {
			first = false
			if header(record[1:], reader.Comma) {
				continue
			}
		}
		values, err := ParseValues(record[1:], reader.Comma)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if width >= 0 && len(values) != width {
			return nil, fmt.Errorf("line %d has %d measurements, previous rows have %d: %w", line, len(values), width, ml.ErrDimension)
		}
		width = len(values)
		samples = append(samples, ml.Sample{ID: strings.TrimSpace(record[0]), Features: values})
	}
	return samples, nil
}

// ParseValues converts measurement cells to numbers. With a separator other
// than ',' a decimal comma ("12,5") is accepted.
func ParseValues(fields []string, comma rune) (ml.FeatureVector, error) {
	values := make(ml.FeatureVector, len(fields))
	for i, field := range fields {
		s := strings.TrimSpace(field)
		if comma != ',' && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("column %d value %q is not numeric: %w", i+2, field, ml.ErrData)
		}
		values[i] = v
	}
	return values, nil
}

// header reports whether no measurement cell of a row is numeric. A row
// with some numeric cells is a sample, even when others fail to parse.
func header(fields []string, comma rune) bool {
	for _, field := range fields {
		if _, err := ParseValues([]string{field}, comma); err == nil {
			return false
		}
	}
	return true
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
