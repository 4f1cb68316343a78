// Package cli defines the Cobra command tree for the pkgderive CLI. Each file
// registers one top-level command with the root command. Commands delegate
// to internal/manifest for derivation and validation and only handle flag
// parsing, config defaults and output formatting.
package cli
