// package formatter provides functions to export frequency maps to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
)

// Format is an export format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// ParseFormat returns the format named s; "md" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension, dot included.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	default:
		return ".json"
	}
}

// ExportCSV converts a FrequencyMap to CSV with columns: Key, Count
func ExportCSV(fm *stats.FrequencyMap) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Key", "Count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range fm.Entries() {
		if err := writer.Write([]string{e.Key, strconv.Itoa(e.Count)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportMarkdown converts a FrequencyMap to a Markdown table under a title heading
func ExportMarkdown(title string, fm *stats.FrequencyMap) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Total**: %d\n\n", fm.Total())

	buf.WriteString("| Key | Count |\n")
	buf.WriteString("| --- | ---: |\n")
	for _, e := range fm.Entries() {
		fmt.Fprintf(&buf, "| %s | %d |\n", strings.ReplaceAll(e.Key, "|", `\|`), e.Count)
	}

	return buf.Bytes(), nil
}

// ExportText converts a FrequencyMap to aligned plain text
func ExportText(title string, fm *stats.FrequencyMap) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Total: %d\n\n", fm.Total())

	width := 0
	for _, k := range fm.Keys() {
		width = max(width, len(k))
	}
	for _, e := range fm.Entries() {
		fmt.Fprintf(&buf, "%-*s  %d\n", width, e.Key, e.Count)
	}

	return buf.Bytes(), nil
}

// ExportJSON encodes a FrequencyMap as an indented, ordered array of {key, count}
func ExportJSON(fm *stats.FrequencyMap) ([]byte, error) {
	return json.MarshalIndent(fm, "", "  ")
}

// Export renders fm in format.
func Export(format Format, title string, fm *stats.FrequencyMap) ([]byte, error) {
	switch format {
	case CSV:
		return ExportCSV(fm)
	case Markdown:
		return ExportMarkdown(title, fm)
	case Text:
		return ExportText(title, fm)
	case JSON, "":
		return ExportJSON(fm)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders fm in format and writes it to path, creating parent directories.
func WriteExport(format Format, title string, fm *stats.FrequencyMap, path string) error {
	data, err := Export(format, title, fm)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}
