// Package output provides mapping result formatters.
package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/inodb/gene-map/internal/idmap"
)

// Column names of the mapping table.
const (
	ColumnFrom = "ID_from"
	ColumnTo   = "ID_to"
)

// CSVWriter writes id mappings as comma-separated values.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the header line.
func (cw *CSVWriter) WriteHeader() error {
	return cw.w.Write([]string{ColumnFrom, ColumnTo})
}

// Write writes a single mapping.
func (cw *CSVWriter) Write(p idmap.Pair) error {
	return cw.w.Write([]string{p.From, p.To})
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

// WriteResult writes a header followed by every pair in res.
func WriteResult(w io.Writer, res idmap.Result) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range res {
		if err := cw.Write(p); err != nil {
			return fmt.Errorf("write mapping: %w", err)
		}
	}
	return cw.Flush()
}
