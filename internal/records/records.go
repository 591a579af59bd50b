// Package records loads tabular input for the fallback store: CSV with a
// header row, or a JSON array of objects.
package records

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
)

// Format is an input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown record format")
	ErrNoHeader      = errors.New("csv input has no header row")
)

// ParseFormat parses a format name. The empty string is returned as is so
// callers can fall back to detection.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DetectFormat guesses the format from a file extension, defaulting to CSV.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// LoadFile reads records from path. "-" or "" reads stdin. An empty format
// is detected from the extension.
func LoadFile(path string, format Format) ([]map[string]any, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	if path == "" || path == "-" {
		return Load(os.Stdin, format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	return Load(f, format)
}

// Load reads records from r in the given format.
func Load(r io.Reader, format Format) ([]map[string]any, error) {
	switch format {
	case FormatCSV:
		return loadCSV(r)
	case FormatJSON:
		return loadJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// loadCSV maps each row onto the header. Values stay strings; blank lines
// are skipped and short rows leave trailing columns unset.
func loadCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	out := []map[string]any{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rec := make(map[string]any, len(header))
		for i, v := range row {
			if i >= len(header) {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("read csv: line %d has %d fields, header has %d", line, len(row), len(header))
			}
			if header[i] == "" {
				continue
			}
			rec[header[i]] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

func loadJSON(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode json records: trailing data")
	}
	if out == nil {
		out = []map[string]any{}
	}
	for i, rec := range out {
		if rec == nil {
			return nil, fmt.Errorf("decode json records: element %d is null", i)
		}
	}
	return out, nil
}

// ParseKeyValues parses repeated k=v flags into a metadata map. Nil when
// pairs is empty.
func ParseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", p)
		}
		out[k] = v
	}
	return out, nil
}
