// Package config manages settings stored at ~/.pkgderive/config.yaml: the
// expected manifest author and the default base and output paths used by
// the derive command. Every key can be overridden with a PKGDERIVE_*
// environment variable.
package config
