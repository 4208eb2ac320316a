// Package idmap resolves dataset-specific identifiers to canonical gene symbols.
package idmap

import (
	"math"
	"strings"

	"pahscreen/adapters/tabular"
	"pahscreen/domain/core"
	"pahscreen/domain/expr"
	"pahscreen/internal/errors"
)

// Mapper translates identifiers from one namespace to canonical gene symbols.
// A nil translation table acts as the identity mapping: the identifier is
// assumed to already be a gene symbol and is only canonicalized.
type Mapper struct {
	toGene map[string]core.GeneSymbol
}

// Identity returns a mapper that canonicalizes symbols without translating
func Identity() *Mapper {
	return &Mapper{}
}

// LoadTable reads a two-column mapping table (fromCol -> toCol).
// Rows with a blank side are skipped; the last occurrence of a duplicate
// source identifier wins.
func LoadTable(path, fromCol, toCol string) (*Mapper, error) {
	t, err := tabular.ReadCSV(path, tabular.Schema{
		Name:     "identifier mapping",
		Required: []string{fromCol, toCol},
	})
	if err != nil {
		return nil, err
	}
	from, _ := t.Col(fromCol)
	to, _ := t.Col(toCol)

	m := &Mapper{toGene: make(map[string]core.GeneSymbol, t.Len())}
	for _, row := range t.Rows {
		src := strings.TrimSpace(row[from])
		dst := core.CanonicalGeneSymbol(row[to])
		if src == "" || dst.IsEmpty() {
			continue
		}
		m.toGene[normalizeKey(src)] = dst
	}
	if len(m.toGene) == 0 {
		return nil, errors.MappingErrorf("identifier mapping %s contains no usable rows", path)
	}
	return m, nil
}

// Resolve maps one identifier to its canonical gene symbol
func (m *Mapper) Resolve(id string) (core.GeneSymbol, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	if m == nil || m.toGene == nil {
		return core.CanonicalGeneSymbol(id), true
	}
	g, ok := m.toGene[normalizeKey(id)]
	return g, ok
}

// CanonicalizeMatrix rewrites a matrix onto canonical gene symbols.
// Unresolved rows are dropped; when their fraction exceeds maxUnresolved the
// whole load fails with a MappingError reporting the unresolved fraction,
// so the run aborts rather than proceeding on partial data. Rows that
// collapse onto the same canonical symbol are aggregated by the mean of
// their values, ignoring missing cells.
func (m *Mapper) CanonicalizeMatrix(mat *expr.Matrix, maxUnresolved float64) (*expr.Matrix, error) {
	if len(mat.Genes) == 0 {
		return nil, errors.SchemaErrorf("matrix %s has no gene rows to canonicalize", mat.Source)
	}

	type accum struct {
		sums   []float64
		counts []int
	}
	order := make([]core.GeneSymbol, 0, len(mat.Genes))
	byGene := make(map[core.GeneSymbol]*accum, len(mat.Genes))
	unresolved := 0

	for i, raw := range mat.Genes {
		gene, ok := m.Resolve(raw.String())
		if !ok {
			unresolved++
			continue
		}
		a := byGene[gene]
		if a == nil {
			a = &accum{sums: make([]float64, len(mat.Samples)), counts: make([]int, len(mat.Samples))}
			byGene[gene] = a
			order = append(order, gene)
		}
		for j, v := range mat.Values[i] {
			if math.IsNaN(v) {
				continue
			}
			a.sums[j] += v
			a.counts[j]++
		}
	}

	fraction := float64(unresolved) / float64(len(mat.Genes))
	if fraction > maxUnresolved {
		return nil, errors.MappingErrorf(
			"matrix %s: %.1f%% of %d identifiers unresolved (limit %.1f%%)",
			mat.Source, fraction*100, len(mat.Genes), maxUnresolved*100)
	}

	out := &expr.Matrix{
		Source:  mat.Source,
		Genes:   order,
		Samples: mat.Samples,
		Values:  make([][]float64, len(order)),
	}
	for i, gene := range order {
		a := byGene[gene]
		row := make([]float64, len(mat.Samples))
		for j := range row {
			if a.counts[j] == 0 {
				row[j] = math.NaN()
				continue
			}
			row[j] = a.sums[j] / float64(a.counts[j])
		}
		out.Values[i] = row
	}
	if err := out.Validate(); err != nil {
		return nil, errors.SchemaErrorf("canonicalized matrix %s: %v", mat.Source, err)
	}
	return out, nil
}

// UnresolvedFraction reports how many of the given identifiers the mapper
// cannot resolve, for coverage checks on non-matrix tables.
func (m *Mapper) UnresolvedFraction(ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}
	unresolved := 0
	for _, id := range ids {
		if _, ok := m.Resolve(id); !ok {
			unresolved++
		}
	}
	return float64(unresolved) / float64(len(ids))
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
