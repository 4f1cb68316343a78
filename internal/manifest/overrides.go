package manifest

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ParseAssignments turns key=value pairs into an OverrideSet. Values that
// start with '{' or '[' are decoded as YAML flow collections, so
// `engines={node: ">=18"}` yields a nested record; every other value is
// kept as a plain string. Later pairs win over earlier ones.
func ParseAssignments(pairs []string) (OverrideSet, error) {
	set := make(OverrideSet, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("override %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("override %q: empty key", pair)
		}

		v, err := parseValue(value)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", key, err)
		}
		set[key] = v
	}
	return set, nil
}

func parseValue(value string) (interface{}, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return value, nil
	}

	var raw interface{}
	if err := yaml.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("parsing value: %w", err)
	}
	return normalizeYAML(raw), nil
}

// With returns a new OverrideSet holding o's entries overlaid by other's.
func (o OverrideSet) With(other OverrideSet) OverrideSet {
	out := make(OverrideSet, len(o)+len(other))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}
