package research

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

// defaultConfidence applies to bare values the model returned without a
// confidence of their own.
const defaultConfidence = 0.5

// decodeSection turns obj[section] into DataPoints. Entries that cannot be
// decoded are logged and skipped.
func decodeSection(agent contractx.AgentName, obj map[string]any, section string) (map[string]contractx.DataPoint, error) {
	raw, ok := obj[section]
	if !ok {
		return nil, fmt.Errorf("%w: response has no %q section", contractx.ErrSchemaViolation, section)
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q section is %T, want object", contractx.ErrSchemaViolation, section, raw)
	}

	items := make(map[string]contractx.DataPoint, len(entries))
	for key, entry := range entries {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		dp, err := decodeDataPoint(entry)
		if err != nil {
			log.Warn().Err(err).Str("agent", string(agent)).Str("key", key).Msg("research: skipping malformed entry")
			continue
		}
		items[key] = dp
	}
	return items, nil
}

func decodeDataPoint(entry any) (contractx.DataPoint, error) {
	obj, ok := entry.(map[string]any)
	if !ok || !hasValueKey(obj) {
		if entry == nil {
			return contractx.DataPoint{}, fmt.Errorf("%w: null value", contractx.ErrSchemaViolation)
		}
		return contractx.NewDataPoint(entry, defaultConfidence), nil
	}

	value := obj["value"]
	if value == nil {
		return contractx.DataPoint{}, fmt.Errorf("%w: null value", contractx.ErrSchemaViolation)
	}

	confidence := defaultConfidence
	if c, present := obj["confidence"]; present {
		parsed, err := toFloat(c)
		if err != nil {
			return contractx.DataPoint{}, err
		}
		confidence = parsed
	}

	sources, err := decodeSources(obj["sources"])
	if err != nil {
		return contractx.DataPoint{}, err
	}
	return contractx.NewDataPoint(value, confidence, sources...), nil
}

func hasValueKey(obj map[string]any) bool {
	_, ok := obj["value"]
	return ok
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: confidence %q is not a number", contractx.ErrSchemaViolation, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: confidence has type %T", contractx.ErrSchemaViolation, v)
	}
}

func decodeSources(raw any) ([]contractx.SourceInfo, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: sources has type %T, want list", contractx.ErrSchemaViolation, raw)
	}
	out := make([]contractx.SourceInfo, 0, len(list))
	for _, item := range list {
		switch src := item.(type) {
		case string:
			out = append(out, contractx.SourceInfo{Name: src})
		case map[string]any:
			name, _ := src["name"].(string)
			url, _ := src["url"].(string)
			if strings.TrimSpace(name) == "" {
				name = url
			}
			out = append(out, contractx.SourceInfo{
				Name:       strings.TrimSpace(name),
				URL:        strings.TrimSpace(url),
				AccessedAt: parseAccessedAt(src["accessed_at"]),
			})
		}
	}
	return out, nil
}

// parseAccessedAt accepts RFC 3339 timestamps and plain dates. Anything else
// is dropped.
func parseAccessedAt(raw any) *time.Time {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// renderSection lists a section as "- key: value" lines in key order.
func renderSection(sec contractx.Section) string {
	if len(sec) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, renderValue(sec[k].Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
