package tabular

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"pahscreen/internal/errors"
)

// ReadCSV loads a delimited file into a Table and validates it against the
// schema. Gzip-compressed files (.gz suffix) are decompressed transparently;
// .tsv files are read tab-delimited. Fails with a SchemaError when a required
// column is absent or the file carries no header.
func ReadCSV(path string, schema Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("failed to open "+schema.Name+" table", err)
	}
	defer f.Close()

	var src io.Reader = f
	name := path
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.IOError("failed to decompress "+schema.Name+" table", err)
		}
		defer gz.Close()
		src = gz
		name = strings.TrimSuffix(path, ".gz")
	}

	r := csv.NewReader(src)
	if strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt") {
		r.Comma = '\t'
	}
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.SchemaErrorf("%s table %s is empty", schema.Name, path)
	}
	if err != nil {
		return nil, errors.SchemaErrorf("%s table %s has a malformed header: %v", schema.Name, path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := NewTable(header...)
	for _, col := range schema.Required {
		if _, ok := t.Col(col); !ok {
			return nil, errors.SchemaErrorf("%s table %s is missing required column %q", schema.Name, path, col)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.SchemaErrorf("%s table %s has a malformed row: %v", schema.Name, path, err)
		}
		if len(row) != len(header) {
			return nil, errors.SchemaErrorf("%s table %s row %d has %d values for %d columns",
				schema.Name, path, t.Len()+1, len(row), len(header))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
