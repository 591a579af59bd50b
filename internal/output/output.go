package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatTable
	}
}

// Printer handles formatted output
type Printer struct {
	format  Format
	writer  io.Writer
	noColor bool
}

// NewPrinter creates a new printer
func NewPrinter(format Format) *Printer {
	return &Printer{
		format:  format,
		writer:  os.Stdout,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

// SetWriter sets the output writer
func (p *Printer) SetWriter(w io.Writer) {
	p.writer = w
}

// SetNoColor disables ANSI colors.
func (p *Printer) SetNoColor(v bool) {
	p.noColor = v
}

// Print outputs data in the configured format
func (p *Printer) Print(data interface{}) error {
	switch p.format {
	case FormatYAML:
		return p.printYAML(data)
	default:
		return p.printJSON(data)
	}
}

func (p *Printer) printJSON(data interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (p *Printer) printYAML(data interface{}) error {
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(data)); err != nil {
		return err
	}
	return enc.Close()
}

// normalize turns json.Number values into plain numbers so YAML renders
// them unquoted.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		if t == nil {
			return t
		}
		out := make(map[string]interface{}, len(t))
		for k, x := range t {
			out[k] = normalize(x)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	case []map[string]interface{}:
		if t == nil {
			return t
		}
		out := make([]map[string]interface{}, len(t))
		for i, x := range t {
			out[i], _ = normalize(x).(map[string]interface{})
		}
		return out
	case SnapshotView:
		t.Metadata, _ = normalize(t.Metadata).(map[string]interface{})
		t.Records, _ = normalize(t.Records).([]map[string]interface{})
		return t
	default:
		return v
	}
}

// Color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

// Colorize adds color to text
func (p *Printer) Colorize(color, text string) string {
	if p.noColor {
		return text
	}
	return color + text + Reset
}

// TableWriter creates a tabwriter for aligned output
func (p *Printer) TableWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
}

// SnapshotView is the printable form of a fallback snapshot.
type SnapshotView struct {
	CapturedAt string                   `json:"captured_at" yaml:"captured_at"`
	AgeMinutes int                      `json:"age_minutes" yaml:"age_minutes"`
	Fresh      bool                     `json:"fresh" yaml:"fresh"`
	Metadata   map[string]interface{}   `json:"metadata" yaml:"metadata"`
	Records    []map[string]interface{} `json:"records" yaml:"records"`
}

// PrintSnapshot prints the snapshot header, metadata and a record table.
func (p *Printer) PrintSnapshot(s SnapshotView) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(s)
	}

	fresh := p.Colorize(Green, "fresh")
	if !s.Fresh {
		fresh = p.Colorize(Yellow, "stale")
	}
	fmt.Fprintf(p.writer, "%s %s (%d min, %s)\n", p.Colorize(Bold, "Captured:"), s.CapturedAt, s.AgeMinutes, fresh)

	if len(s.Metadata) > 0 {
		fmt.Fprintln(p.writer, p.Colorize(Bold, "Metadata:"))
		for _, k := range sortedKeys(s.Metadata) {
			fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, k+":"), formatValue(s.Metadata[k]))
		}
	}

	return p.PrintRecords(s.Records)
}

// PrintRecords prints records as a table. Columns are the union of record
// keys in sorted order.
func (p *Printer) PrintRecords(records []map[string]interface{}) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(p.writer, "No records found")
		return nil
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	w := p.TableWriter()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(w, p.Colorize(Bold, strings.Join(header, "\t")))

	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			v, ok := r[c]
			if !ok {
				row[i] = "-"
				continue
			}
			row[i] = formatValue(v)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

// StatusView is the printable form of the store status.
type StatusView struct {
	Driver     string `json:"driver" yaml:"driver"`
	Key        string `json:"key" yaml:"key"`
	HasData    bool   `json:"has_data" yaml:"has_data"`
	Records    int    `json:"records" yaml:"records"`
	AgeMinutes int    `json:"age_minutes" yaml:"age_minutes"`
	Fresh      bool   `json:"fresh" yaml:"fresh"`
	Persistent bool   `json:"persistent" yaml:"persistent"`
}

// PrintStatus prints the store status
func (p *Printer) PrintStatus(s StatusView) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(s)
	}

	fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Driver:"), s.Driver)
	fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Key:"), s.Key)
	if !s.HasData {
		fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Data:"), p.Colorize(Yellow, "none"))
		return nil
	}
	fmt.Fprintf(p.writer, "%s %d records\n", p.Colorize(Bold, "Data:"), s.Records)
	fmt.Fprintf(p.writer, "%s %d min\n", p.Colorize(Bold, "Age:"), s.AgeMinutes)
	if s.Fresh {
		fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Fresh:"), p.Colorize(Green, "true"))
	} else {
		fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Fresh:"), p.Colorize(Yellow, "false"))
	}
	return nil
}

// ErrorEntry is one reported storage error.
type ErrorEntry struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Source    string `json:"source" yaml:"source"`
	Kind      string `json:"kind" yaml:"kind"`
	Message   string `json:"message" yaml:"message"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// PrintErrors prints reported errors, one per line.
func (p *Printer) PrintErrors(entries []ErrorEntry) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(entries)
	}

	for _, e := range entries {
		msg := e.Message
		if e.Error != "" {
			msg += ": " + e.Error
		}
		fmt.Fprintf(p.writer, "%s %s %s %s\n",
			p.Colorize(Gray, e.Timestamp),
			p.Colorize(Cyan, "["+e.Source+"]"),
			p.Colorize(Red, e.Kind),
			msg,
		)
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Green, "✓ ")+msg)
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Yellow, "⚠ ")+msg)
}
