package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	//go:embed schema/package.schema.json
	packageSchemaBytes []byte
	//go:embed schema/strict.schema.json
	strictSchemaBytes []byte
)

var (
	packageSchema = &lazySchema{name: "package.schema.json", data: packageSchemaBytes}
	strictSchema  = &lazySchema{name: "strict.schema.json", data: strictSchemaBytes}
	printer       = message.NewPrinter(language.English)
)

// lazySchema compiles an embedded JSON schema on first use.
type lazySchema struct {
	name string
	data []byte

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// get compiles the schema once and returns it.
func (l *lazySchema) get() (*jsonschema.Schema, error) {
	l.once.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(l.data))
		if err != nil {
			l.err = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(l.name, doc); err != nil {
			l.err = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		l.compiled, l.err = c.Compile(l.name)
		if l.err != nil {
			l.err = fmt.Errorf("compiling schema %s: %w", l.name, l.err)
		}
	})
	return l.compiled, l.err
}

// Validator checks derived manifests: required fields, semantic-version
// syntax, the expected author and the field types of the embedded package
// schema. A strict validator also applies npm's publishing rules (name
// pattern and length, engines and dependency map shapes).
type Validator struct {
	author string
	strict bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// Strict enables the npm publishing rules.
func Strict() ValidatorOption {
	return func(v *Validator) {
		v.strict = true
	}
}

// NewValidator returns a Validator expecting author. An empty author falls
// back to DefaultAuthor.
func NewValidator(author string, opts ...ValidatorOption) *Validator {
	if author == "" {
		author = DefaultAuthor
	}
	v := &Validator{author: author}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Author returns the author the validator expects.
func (v *Validator) Author() string {
	return v.author
}

// Validate returns nil when m passes every rule. Rule failures are
// reported together in a *ValidationError; any other error means the
// schema itself could not be loaded or applied.
func (v *Validator) Validate(m Manifest) error {
	var issues []ValidationIssue

	for _, field := range RequiredFields {
		if _, ok := m[field]; !ok {
			issues = append(issues, ValidationIssue{
				Field:   field,
				Path:    "/" + field,
				Message: "missing required field",
				Keyword: "required",
			})
		}
	}

	if raw, ok := m[FieldVersion].(string); ok {
		if issue, bad := checkVersion(raw); bad {
			issues = append(issues, issue)
		}
	}

	if raw, ok := m[FieldAuthor]; ok {
		if issue, bad := v.checkAuthor(raw); bad {
			issues = append(issues, issue)
		}
	}

	schema := packageSchema
	if v.strict {
		schema = strictSchema
	}
	structural, err := schemaIssues(schema, m)
	if err != nil {
		return err
	}
	issues = append(issues, structural...)

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// checkVersion requires MAJOR.MINOR.PATCH with optional pre-release and
// build metadata. Prefixes like "v" and partial versions are rejected.
func checkVersion(raw string) (ValidationIssue, bool) {
	if _, err := semver.StrictNewVersion(raw); err != nil {
		return ValidationIssue{
			Field:   FieldVersion,
			Path:    "/" + FieldVersion,
			Message: fmt.Sprintf("%q is not a semantic version: %v", raw, err),
			Keyword: "semver",
		}, true
	}
	return ValidationIssue{}, false
}

// checkAuthor requires author to be exactly the expected string. Person
// objects are rejected even when their name matches.
func (v *Validator) checkAuthor(raw interface{}) (ValidationIssue, bool) {
	issue := ValidationIssue{
		Field:   FieldAuthor,
		Path:    "/" + FieldAuthor,
		Keyword: "author",
	}

	name, ok := raw.(string)
	if !ok {
		issue.Message = fmt.Sprintf("wrong author name: got %s, want the string %q", kindOf(raw), v.author)
		return issue, true
	}
	if name != v.author {
		issue.Message = fmt.Sprintf("wrong author name %q, want %q", name, v.author)
		return issue, true
	}
	return ValidationIssue{}, false
}

// schemaIssues validates m against an embedded schema.
func schemaIssues(l *lazySchema, m Manifest) ([]ValidationIssue, error) {
	schema, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	jsonData, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}
	return extractIssues(validationErr), nil
}

// extractIssues walks the ValidationError tree and returns leaf-level
// issues sorted by instance path.
func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectValidationIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{
			Message: ve.Error(),
			Keyword: "schema",
		}}
	}
	issues = deduplicateIssues(issues)
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Path < issues[j].Path
	})
	return issues
}

// collectValidationIssues recursively walks the error tree to find leaf errors
// with specific property information.
func collectValidationIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectValidationIssues(cause, issues)
		}
		return
	}

	keyword := ""
	msg := ""
	if ve.ErrorKind != nil {
		kwPath := ve.ErrorKind.KeywordPath()
		if len(kwPath) > 0 {
			keyword = kwPath[len(kwPath)-1]
		}
		msg = ve.ErrorKind.LocalizedString(printer)
	}

	// Generic container errors carry no field information.
	if keyword == "oneOf" || keyword == "allOf" || keyword == "$ref" || keyword == "" {
		return
	}

	path := ""
	field := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
		field = ve.InstanceLocation[0]
	}

	*issues = append(*issues, ValidationIssue{
		Field:   field,
		Path:    path,
		Message: msg,
		Keyword: keyword,
	})
}

// deduplicateIssues removes duplicate issues (same path + keyword + message).
func deduplicateIssues(issues []ValidationIssue) []ValidationIssue {
	seen := make(map[string]bool)
	var result []ValidationIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}
