package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentx-labs/pkgderive/internal/branding"
	"github.com/agentx-labs/pkgderive/internal/manifest"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyAuthor = "author"
	KeyBase   = "base"
	KeyOut    = "out"
)

// Defaults for every known key.
var defaults = map[string]string{
	KeyAuthor: manifest.DefaultAuthor,
	KeyBase:   "package.json",
	KeyOut:    filepath.Join("build", "package.json"),
}

// Config is a loaded settings file layered over environment variables and
// defaults.
type Config struct {
	v    *viper.Viper
	path string
}

// Dir returns the path to the config directory (~/.pkgderive/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.pkgderive/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// Keys returns the known config keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Load reads the config file at path, or FilePath() when path is empty.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FilePath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking config file %s: %w", path, err)
	}

	return &Config{v: v, path: path}, nil
}

// Path returns the file the config reads from and writes to.
func (c *Config) Path() string {
	return c.path
}

// Get returns a config value by key. Returns empty string if not set.
func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

// Author returns the author derived manifests must carry.
func (c *Config) Author() string {
	return c.v.GetString(KeyAuthor)
}

// BasePath returns the default base manifest location.
func (c *Config) BasePath() string {
	return c.v.GetString(KeyBase)
}

// OutPath returns the default derived manifest location.
func (c *Config) OutPath() string {
	return c.v.GetString(KeyOut)
}

// Set writes a config key-value pair and saves the config file.
func (c *Config) Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	c.v.Set(key, value)

	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
