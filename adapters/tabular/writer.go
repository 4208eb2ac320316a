package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"pahscreen/internal/errors"
)

// WriteCSV writes the table atomically: the data goes to a temporary file in
// the target directory and is renamed into place only on success. A failed
// stage therefore never leaves a partial output file behind.
func WriteCSV(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IOError("failed to create output directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.IOError("failed to create temporary output file", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(t.Columns)
	if writeErr == nil {
		for _, row := range t.Rows {
			if writeErr = w.Write(row); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return errors.IOError("failed to write "+path, writeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.IOError("failed to finalize "+path, err)
	}
	return nil
}

// WriteText writes a plain-text artifact with the same atomic discipline
func WriteText(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IOError("failed to create output directory "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.IOError("failed to create temporary output file", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(content)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return errors.IOError("failed to write "+path, writeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.IOError("failed to finalize "+path, err)
	}
	return nil
}
