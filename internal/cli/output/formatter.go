// Package output renders command results for sl-cli.
//
// Resource bodies arrive as raw JSON; they are pretty-printed as JSON,
// converted to YAML, or, for OData collections, laid out as a table.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format is an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	// FormatRaw writes response bodies unchanged.
	FormatRaw Format = "raw"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatTable, FormatRaw:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json, yaml, table, raw)", s)
	}
}

// Formatter writes one value. Values of type json.RawMessage or []byte are
// treated as JSON documents.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the Formatter for format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatTable:
		return &TableFormatter{}
	case FormatRaw:
		return &RawFormatter{}
	default:
		return &JSONFormatter{}
	}
}

// rawJSON returns data as a JSON document when it is one.
func rawJSON(data any) (json.RawMessage, bool) {
	switch v := data.(type) {
	case json.RawMessage:
		return v, true
	case []byte:
		return v, true
	}
	return nil, false
}

// RawFormatter writes bodies verbatim and other values as compact JSON.
type RawFormatter struct{}

// Format implements Formatter.
func (f *RawFormatter) Format(w io.Writer, data any) error {
	if raw, ok := rawJSON(data); ok {
		if len(raw) == 0 {
			return nil
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}
	return json.NewEncoder(w).Encode(data)
}
