package ml

import "strconv"

// Row is one line of the estimation log. Field order is stable so
// external writers can keep appending to the same table.
type Row struct {
	SampleID    string  `json:"sample_id"`
	Element     string  `json:"element"`
	Method      Method  `json:"method"`
	Slot        Slot    `json:"slot"`
	Classifier  int     `json:"classifier"`
	Sex         Sex     `json:"sex"`
	Probability float64 `json:"probability"`
	Score       float64 `json:"score"`
}

// RowColumns is the header matching Row.Values.
func RowColumns() []string {
	return []string{
		"sample_id",
		"element",
		"method",
		"slot",
		"classifier",
		"sex",
		"probability",
		"score",
	}
}

func (r Row) Values() []string {
	return []string{
		r.SampleID,
		r.Element,
		string(r.Method),
		strconv.Itoa(int(r.Slot)),
		strconv.Itoa(r.Classifier),
		r.Sex.String(),
		strconv.FormatFloat(r.Probability, 'f', 4, 64),
		strconv.FormatFloat(r.Score, 'f', 6, 64),
	}
}

// Rows flattens the estimations of one sample into log rows.
func Rows(sampleID, element string, method Method, results []Estimation) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{
			SampleID:    sampleID,
			Element:     element,
			Method:      method,
			Slot:        r.Slot,
			Classifier:  r.Classifier,
			Sex:         r.Sex,
			Probability: r.Probability,
			Score:       r.Score,
		}
	}
	return rows
}
