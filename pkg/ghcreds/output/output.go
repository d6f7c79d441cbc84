package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "", text, json and yaml (case-insensitive). An empty
// value means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// WriteObject renders obj. The text format uses obj's String method when it
// has one and falls back to YAML.
func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatText:
		if s, ok := obj.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w, s.String())
			return err
		}
		return WriteObject(w, FormatYAML, obj)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
