// Package output writes projected records to CSV or JSON files and to the
// console.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/gitdata/pkg/fields"
	"github.com/Sternrassler/gitdata/pkg/logging"
)

// ErrUnsupportedFormat is returned for file names that are neither .csv nor .json.
var ErrUnsupportedFormat = errors.New("unsupported output format (use .csv or .json)")

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by a file name. Anything that is not
// .json is written as CSV.
func FormatOf(filename string) Format {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// ValidFilename checks the extension of an output file name. An empty name
// means no file is written and is valid.
func ValidFilename(filename string) error {
	if filename == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".json":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// WriteCSV writes records with a header row taken from the first record's
// field names. Later records are written by those names; missing values are
// empty. Nothing is written for zero records.
func WriteCSV(w io.Writer, records []fields.Record) error {
	if len(records) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	header := records[0].Names()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i, rec := range records {
		for j, name := range header {
			v, _ := rec.Get(name)
			row[j] = fields.Format(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as a JSON array indented with four spaces, keys
// sorted.
func WriteJSON(w io.Writer, records []fields.Record) error {
	if records == nil {
		records = []fields.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteRawJSON writes any value as indented JSON with sorted keys, the
// format used for raw API dumps.
func WriteRawJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteFile writes records to filename in the format its extension selects.
// The file is replaced atomically.
func WriteFile(filename string, records []fields.Record) error {
	if err := ValidFilename(filename); err != nil {
		return err
	}

	var buf bytes.Buffer
	var err error
	switch FormatOf(filename) {
	case FormatJSON:
		err = WriteJSON(&buf, records)
	default:
		err = WriteCSV(&buf, records)
	}
	if err != nil {
		return err
	}

	if err := AtomicWrite(filename, buf.Bytes()); err != nil {
		return err
	}

	logger := logging.NewLogger("output")
	logger.Info().
		Str("file", filename).
		Int("records", len(records)).
		Str("format", string(FormatOf(filename))).
		Msg("Output file written")
	return nil
}

// Display prints one line per record with the values joined by commas.
func Display(w io.Writer, records []fields.Record) error {
	for _, rec := range records {
		values := rec.Values()
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fields.Format(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, ",")); err != nil {
			return err
		}
	}
	return nil
}

// AtomicWrite writes data to a temporary file next to path and renames it
// into place.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
