// Package platform provides cross-platform filesystem operations used when
// writing manifests: permission management that is a no-op on Windows, and
// atomic file replacement through a temp file and rename.
package platform
