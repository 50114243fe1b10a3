package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeOutput prints v as indented JSON or as YAML with the same field names.
func writeOutput(w io.Writer, v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatJSON:
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("re-decoding output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (valid: json, yaml)", format)
	}
}
