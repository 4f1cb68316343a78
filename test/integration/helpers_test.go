//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // HOME, so ~/.pkgderive/config.yaml lands in a temp dir
	ProjectDir string // A mock monorepo with a root and a cli package
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them. Environment changes are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)
	t.Setenv("PKGDERIVE_AUTHOR", "")

	return env
}

// setupProject writes a root package.json and a cli/package.json holding
// the fields the published package overrides.
func setupProject(t *testing.T, projectDir string) {
	t.Helper()

	writeFile(t, filepath.Join(projectDir, "package.json"), `{
  "name": "root",
  "version": "1.2.3",
  "description": "Monorepo root",
  "author": "Brian Mann",
  "license": "MIT",
  "engines": {
    "node": ">=4.0.0"
  },
  "scripts": {
    "build": "pkgderive derive"
  },
  "private": true
}
`)
	writeFile(t, filepath.Join(projectDir, "cli", "package.json"), `{
  "name": "test",
  "engines": "test engines"
}
`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
	}
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be absent (stat err = %v)", path, err)
	}
}
