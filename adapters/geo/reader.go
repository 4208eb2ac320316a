// Package geo parses GEO series-matrix files into expression matrices.
package geo

import (
	"bufio"
	"compress/gzip"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"pahscreen/domain/core"
	"pahscreen/domain/expr"
	"pahscreen/internal/errors"
)

// Series-matrix structural markers
const (
	tableBegin = "!series_matrix_table_begin"
	tableEnd   = "!series_matrix_table_end"

	metaAccession       = "!Sample_geo_accession"
	metaTitle           = "!Sample_title"
	metaCharacteristics = "!Sample_characteristics_ch1"
)

// maxLineBytes bounds a single matrix line; series matrices put one value
// per sample on a gene line, which stays far below this for array data.
const maxLineBytes = 16 << 20

// ReadSeriesMatrix parses a plain or gzip-compressed series-matrix file.
// Sample metadata lines (!Sample_*) are collected first; the expression
// table between the begin/end markers supplies gene rows and sample order.
// Group labels are left unassigned; callers apply their grouping rules.
func ReadSeriesMatrix(path, source string) (*expr.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("failed to open series matrix "+path, err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.IOError("failed to decompress series matrix "+path, err)
		}
		defer gz.Close()
		src = gz
	}
	return parse(src, path, source)
}

func parse(src io.Reader, path, source string) (*expr.Matrix, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		accessions      []string
		titles          []string
		characteristics [][]string // one slice per characteristics line, column-aligned
		header          []string
		genes           []core.GeneSymbol
		values          [][]float64
		inTable         bool
		sawTable        bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, tableBegin) {
			inTable = true
			sawTable = true
			continue
		}
		if strings.HasPrefix(line, tableEnd) {
			inTable = false
			continue
		}

		if !inTable {
			key, fields := splitMetaLine(line)
			switch key {
			case metaAccession:
				accessions = fields
			case metaTitle:
				titles = fields
			case metaCharacteristics:
				characteristics = append(characteristics, fields)
			}
			continue
		}

		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = unquote(fields[i])
		}
		if header == nil {
			header = fields
			continue
		}
		if len(fields) != len(header) {
			return nil, errors.SchemaErrorf("series matrix %s: row %q has %d fields, header has %d",
				path, fields[0], len(fields), len(header))
		}
		genes = append(genes, core.GeneSymbol(strings.TrimSpace(fields[0])))
		row := make([]float64, len(fields)-1)
		for i, cell := range fields[1:] {
			row[i] = parseCell(cell)
		}
		values = append(values, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError("failed to read series matrix "+path, err)
	}

	if !sawTable {
		return nil, errors.SchemaErrorf("series matrix %s has no %s section", path, tableBegin)
	}
	if len(header) < 2 {
		return nil, errors.SchemaErrorf("series matrix %s has no sample columns", path)
	}

	samples := buildSamples(header[1:], accessions, titles, characteristics)
	m := &expr.Matrix{Source: source, Genes: genes, Samples: samples, Values: values}
	if err := m.Validate(); err != nil {
		return nil, errors.SchemaErrorf("series matrix %s: %v", path, err)
	}
	return m, nil
}

// buildSamples aligns metadata columns with the table's sample columns.
// Metadata is matched by accession where possible, falling back to column
// position when the accession line is absent.
func buildSamples(columns, accessions, titles []string, characteristics [][]string) []expr.Sample {
	posByAccession := make(map[string]int, len(accessions))
	for i, acc := range accessions {
		posByAccession[acc] = i
	}

	samples := make([]expr.Sample, len(columns))
	for i, col := range columns {
		pos, ok := posByAccession[col]
		if !ok {
			pos = i
		}
		s := expr.Sample{Accession: col, Characteristics: make(map[string]string)}
		if pos < len(titles) {
			s.Title = titles[pos]
		}
		for _, chLine := range characteristics {
			if pos >= len(chLine) {
				continue
			}
			key, val, found := strings.Cut(chLine[pos], ": ")
			if !found {
				continue
			}
			s.Characteristics[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
		}
		samples[i] = s
	}
	return samples
}

// splitMetaLine splits a !-prefixed metadata line into its key and the
// per-sample fields, stripping surrounding quotes.
func splitMetaLine(line string) (string, []string) {
	parts := strings.Split(line, "\t")
	key := parts[0]
	fields := make([]string, len(parts)-1)
	for i, p := range parts[1:] {
		fields[i] = unquote(p)
	}
	return key, fields
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// parseCell parses one expression value; blanks and "null" become NaN
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "na") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
