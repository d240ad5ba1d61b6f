package measurement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"osteosex/ml"
)

// WriteRows writes rows in ml.RowColumns order, optionally preceded by
// the header.
func WriteRows(w io.Writer, rows []ml.Row, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(ml.RowColumns()); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendRows appends rows to a CSV log, writing the header only when the
// file is new or empty. Existing lines are never rewritten.
func AppendRows(path string, rows []ml.Row) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if err := WriteRows(file, rows, info.Size() == 0); err != nil {
		return fmt.Errorf("append result log %s: %w", path, err)
	}
	return file.Close()
}
