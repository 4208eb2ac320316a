package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Precision is the fixed decimal precision for numeric output columns.
// Fixed so re-running the pipeline reproduces byte-identical files.
const Precision = 6

// NAMarker is the explicit missing-value marker in every output table
const NAMarker = "NA"

// Table is an in-memory tabular value with a stable column order
type Table struct {
	Columns []string
	Rows    [][]string

	colIndex map[string]int
}

// NewTable creates an empty table with the given column order
func NewTable(columns ...string) *Table {
	t := &Table{Columns: columns, colIndex: make(map[string]int, len(columns))}
	for i, c := range columns {
		t.colIndex[c] = i
	}
	return t
}

// Append adds one row. The row must match the column width; a mismatch is a
// programming error and panics.
func (t *Table) Append(row ...string) {
	if len(row) != len(t.Columns) {
		panic(fmt.Sprintf("tabular: row has %d values for %d columns", len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

// Col returns the index of a named column
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

// Value returns the cell at (row, column name); empty string when absent
func (t *Table) Value(row int, col string) string {
	i, ok := t.colIndex[col]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][i]
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Schema declares what a source table must provide before a stage touches it
type Schema struct {
	Name     string
	Required []string
}

// FormatFloat renders a numeric cell at the fixed precision.
// NaN and infinities render as the NA marker.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NAMarker
	}
	return strconv.FormatFloat(v, 'f', Precision, 64)
}

// FormatInt renders an integer cell
func FormatInt(v int) string {
	return strconv.Itoa(v)
}

// ParseFloat parses a numeric cell, mapping the NA marker and blanks to NaN
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NAMarker) || strings.EqualFold(s, "null") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
