package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// decodeInput reads a JSON object from path into v, rejecting unknown keys.
func decodeInput(cmd *cobra.Command, path string, v any) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// jsonOrString returns raw as a decoded JSON object when it is one and as a
// plain string otherwise. Empty input yields nil.
func jsonOrString(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil {
			return obj
		}
	}
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(raw)
}

// parseIndex accepts "latest" or a non-negative 32-bit index.
func parseIndex(raw string, latest uint32) (uint32, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "latest") {
		return latest, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid update index %q: %w", raw, err)
	}
	return uint32(n), nil
}
