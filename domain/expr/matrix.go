package expr

import (
	"fmt"
	"strings"

	"pahscreen/domain/core"
)

// Sample is one column of an expression matrix with its annotation
type Sample struct {
	Accession       string            `json:"accession"`
	Title           string            `json:"title,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty"` // lowercased keys
	Group           string            `json:"group,omitempty"`           // assigned by grouping rules
}

// Matrix is a genes-by-samples expression matrix.
// INVARIANTS:
// - every gene row has a unique identifier within the matrix
// - every row has exactly len(Samples) values; NaN marks a missing value
// - once group assignment succeeds, every sample has exactly one group label
type Matrix struct {
	Source  string            `json:"source"` // dataset tag, e.g. "GSE117261"
	Genes   []core.GeneSymbol `json:"genes"`
	Samples []Sample          `json:"samples"`
	Values  [][]float64       `json:"values"`
}

// Validate checks matrix invariants
func (m *Matrix) Validate() error {
	if len(m.Genes) == 0 {
		return fmt.Errorf("matrix %s has no gene rows", m.Source)
	}
	if len(m.Samples) == 0 {
		return fmt.Errorf("matrix %s has no samples", m.Source)
	}
	if len(m.Values) != len(m.Genes) {
		return fmt.Errorf("matrix %s has %d value rows for %d genes", m.Source, len(m.Values), len(m.Genes))
	}
	seen := make(map[core.GeneSymbol]struct{}, len(m.Genes))
	for i, g := range m.Genes {
		if g.IsEmpty() {
			return fmt.Errorf("matrix %s row %d has an empty gene identifier", m.Source, i)
		}
		if _, dup := seen[g]; dup {
			return fmt.Errorf("matrix %s has duplicate gene identifier %s", m.Source, g)
		}
		seen[g] = struct{}{}
		if len(m.Values[i]) != len(m.Samples) {
			return fmt.Errorf("matrix %s row %s has %d values for %d samples", m.Source, g, len(m.Values[i]), len(m.Samples))
		}
	}
	return nil
}

// GroupColumns returns the column indexes of samples carrying the given group label
func (m *Matrix) GroupColumns(group string) []int {
	var cols []int
	for i, s := range m.Samples {
		if s.Group == group {
			cols = append(cols, i)
		}
	}
	return cols
}

// RowValues extracts the values of gene row i restricted to the given columns
func (m *Matrix) RowValues(i int, cols []int) []float64 {
	out := make([]float64, len(cols))
	for j, c := range cols {
		out[j] = m.Values[i][c]
	}
	return out
}

// GroupRule matches samples by a characteristic (or title) substring.
// A sample matches when the value under Key contains any of the Contains
// fragments, case-insensitively. The empty Key matches against the title.
type GroupRule struct {
	Key      string   `json:"key"`
	Contains []string `json:"contains"`
}

// Matches reports whether the sample satisfies the rule
func (r GroupRule) Matches(s Sample) bool {
	var value string
	if r.Key == "" {
		value = s.Title
	} else {
		value = s.Characteristics[strings.ToLower(r.Key)]
	}
	value = strings.ToLower(value)
	for _, frag := range r.Contains {
		if frag != "" && strings.Contains(value, strings.ToLower(frag)) {
			return true
		}
	}
	return false
}

// AssignGroups labels every sample as caseName or controlName using the
// declarative rules. Samples matching neither rule set keep an empty group
// and are excluded from scoring. Fails when either partition ends up empty,
// since a two-group comparison is then impossible.
func (m *Matrix) AssignGroups(caseRules, controlRules []GroupRule, caseName, controlName string) error {
	caseCount, controlCount := 0, 0
	for i := range m.Samples {
		s := &m.Samples[i]
		s.Group = ""
		if matchesAny(caseRules, *s) {
			s.Group = caseName
			caseCount++
			continue
		}
		if matchesAny(controlRules, *s) {
			s.Group = controlName
			controlCount++
		}
	}
	if caseCount == 0 || controlCount == 0 {
		return fmt.Errorf("matrix %s: group assignment produced %d %q and %d %q samples",
			m.Source, caseCount, caseName, controlCount, controlName)
	}
	return nil
}

func matchesAny(rules []GroupRule, s Sample) bool {
	for _, r := range rules {
		if r.Matches(s) {
			return true
		}
	}
	return false
}
