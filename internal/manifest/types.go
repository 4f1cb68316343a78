package manifest

import "sort"

// Manifest is a package metadata record such as the contents of a
// package.json file.
type Manifest map[string]interface{}

// OverrideSet holds fields that replace their counterparts in a base
// manifest during derivation, regardless of the base value.
type OverrideSet map[string]interface{}

// Field names the validator requires on every derived manifest.
const (
	FieldName    = "name"
	FieldVersion = "version"
	FieldAuthor  = "author"
	FieldEngines = "engines"
)

// RequiredFields lists the fields a derived manifest must carry, in the
// order validation reports them.
var RequiredFields = []string{
	FieldName,
	FieldVersion,
	FieldAuthor,
	FieldEngines,
}

// DefaultAuthor is the expected author when no other value is configured.
const DefaultAuthor = "Brian Mann"

// Keys returns the manifest's keys in sorted order.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the value for key when it is a string.
func (m Manifest) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a deep copy of the manifest.
func (m Manifest) Clone() Manifest {
	if m == nil {
		return nil
	}
	out := make(Manifest, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the override keys in sorted order.
func (o OverrideSet) Keys() []string {
	return Manifest(o).Keys()
}

// cloneValue deep-copies maps and slices produced by the JSON and YAML
// decoders. Scalars are returned as is.
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[k] = cloneValue(v)
		}
		return m
	case Manifest:
		return map[string]interface{}(val.Clone())
	case OverrideSet:
		return map[string]interface{}(Manifest(val).Clone())
	case []interface{}:
		a := make([]interface{}, len(val))
		for i, v := range val {
			a[i] = cloneValue(v)
		}
		return a
	case []string:
		a := make([]interface{}, len(val))
		for i, v := range val {
			a[i] = v
		}
		return a
	default:
		return val
	}
}
