// Package manifest derives package manifests. A Deriver loads a base
// manifest through a Store, merges an OverrideSet into it, validates the
// result against the package JSON Schema plus the version and author rules,
// and persists the derived manifest.
package manifest
