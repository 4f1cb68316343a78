package manifest

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when the base manifest location does not resolve.
	ErrNotFound = errors.New("manifest not found")
	// ErrParse is returned when manifest content is not a well-formed record.
	ErrParse = errors.New("malformed manifest")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid manifest")
	// ErrWrite is returned when the destination cannot be written.
	ErrWrite = errors.New("writing manifest")
)

// ValidationIssue is a single rule a manifest failed.
type ValidationIssue struct {
	Field   string // Top-level field the issue belongs to, or "" for the whole record
	Path    string // Instance location (e.g., "/engines/node")
	Message string // Human-readable reason
	Keyword string // Rule that failed ("required", "semver", "author", or a schema keyword)
}

func (i ValidationIssue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError lists every issue found in a manifest.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "invalid manifest: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation as a match so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the distinct fields named by the issues, in report order.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, issue := range e.Issues {
		if !seen[issue.Field] {
			seen[issue.Field] = true
			fields = append(fields, issue.Field)
		}
	}
	return fields
}

// HasField reports whether any issue names field.
func (e *ValidationError) HasField(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}
