package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

// newTestDeriver returns a Deriver over a fresh MemStore seeded with base
// at "package.json".
func newTestDeriver(t *testing.T, base Manifest, opts ...Option) (*Deriver, *MemStore) {
	t.Helper()
	store := NewMemStore()
	if base != nil {
		if err := store.Put("package.json", base); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	return NewDeriver(store, opts...), store
}

func TestDerive_BuildScenario(t *testing.T) {
	base := Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "old",
	}
	d, _ := newTestDeriver(t, base)

	derived, err := d.Derive("package.json", OverrideSet{
		"name":    "test",
		"engines": "test engines",
	})
	if err != nil {
		t.Fatalf("Derive error: %v", err)
	}

	want := Manifest{
		"name":    "test",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "test engines",
	}
	if !reflect.DeepEqual(derived, want) {
		t.Errorf("Derive = %v, want %v", derived, want)
	}
	if err := d.Validate(derived); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestDerive_OverridePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		base      Manifest
		overrides OverrideSet
	}{
		{
			name:      "empty overrides",
			base:      Manifest{"name": "root", "version": "1.0.0"},
			overrides: OverrideSet{},
		},
		{
			name:      "replace string",
			base:      Manifest{"name": "root", "version": "1.0.0"},
			overrides: OverrideSet{"name": "cli"},
		},
		{
			name:      "add new key",
			base:      Manifest{"name": "root"},
			overrides: OverrideSet{"bin": "bin/cli"},
		},
		{
			name:      "record replaces string",
			base:      Manifest{"name": "root", "engines": "old"},
			overrides: OverrideSet{"engines": map[string]interface{}{"node": ">=18"}},
		},
		{
			name:      "string replaces record",
			base:      Manifest{"name": "root", "engines": map[string]interface{}{"node": ">=4"}},
			overrides: OverrideSet{"engines": "any"},
		},
		{
			name:      "record is replaced, not merged",
			base:      Manifest{"engines": map[string]interface{}{"node": ">=4", "npm": ">=3"}},
			overrides: OverrideSet{"engines": map[string]interface{}{"node": ">=18"}},
		},
		{
			name:      "empty base",
			base:      Manifest{},
			overrides: OverrideSet{"name": "test", "engines": "test engines"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDeriver(t, tt.base)
			derived, err := d.Derive("package.json", tt.overrides)
			if err != nil {
				t.Fatalf("Derive error: %v", err)
			}

			for k, v := range tt.overrides {
				if !reflect.DeepEqual(derived[k], v) {
					t.Errorf("derived[%q] = %v, want override %v", k, derived[k], v)
				}
			}
			for k, v := range tt.base {
				if _, overridden := tt.overrides[k]; overridden {
					continue
				}
				if !reflect.DeepEqual(derived[k], v) {
					t.Errorf("derived[%q] = %v, want base %v", k, derived[k], v)
				}
			}
			if len(derived) != len(tt.base.Keys())+countNew(tt.base, tt.overrides) {
				t.Errorf("derived has %d keys: %v", len(derived), derived.Keys())
			}
		})
	}
}

func countNew(base Manifest, overrides OverrideSet) int {
	n := 0
	for k := range overrides {
		if _, ok := base[k]; !ok {
			n++
		}
	}
	return n
}

func TestDerive_Idempotent(t *testing.T) {
	d := NewDeriver(NewFileStore())
	overrides := OverrideSet{"name": "test", "engines": "test engines"}

	first, err := d.Derive(testPath("root-package.json"), overrides)
	if err != nil {
		t.Fatalf("first Derive error: %v", err)
	}
	second, err := d.Derive(testPath("root-package.json"), overrides)
	if err != nil {
		t.Fatalf("second Derive error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Derive not idempotent:\n first = %v\nsecond = %v", first, second)
	}
}

func TestDerive_NotFound(t *testing.T) {
	d, _ := newTestDeriver(t, nil)
	_, err := d.Derive("missing/package.json", OverrideSet{"name": "test"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDerive_FileNotFound(t *testing.T) {
	d := NewDeriver(NewFileStore())
	_, err := d.Derive(testPath("nonexistent.json"), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDerive_ParseError(t *testing.T) {
	tests := []struct {
		file string
		desc string
	}{
		{"malformed.json", "truncated object"},
		{"array.json", "top-level array"},
	}

	d := NewDeriver(NewFileStore())
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := d.Derive(testPath(tt.file), OverrideSet{"name": "test"})
			if !errors.Is(err, ErrParse) {
				t.Errorf("%s (%s): error = %v, want ErrParse", tt.file, tt.desc, err)
			}
		})
	}
}

func TestDerive_YAMLBase(t *testing.T) {
	d := NewDeriver(NewFileStore())
	derived, err := d.Derive(testPath("root-package.yaml"), OverrideSet{"name": "test"})
	if err != nil {
		t.Fatalf("Derive error: %v", err)
	}
	if derived["name"] != "test" {
		t.Errorf("name = %v, want test", derived["name"])
	}
	files, ok := derived["files"].([]interface{})
	if !ok || len(files) != 2 {
		t.Errorf("files = %v, want two entries", derived["files"])
	}
	if err := d.Validate(derived); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Manifest{
		"name":     "root",
		"engines":  map[string]interface{}{"node": ">=4"},
		"keywords": []interface{}{"a", "b"},
	}
	overrides := OverrideSet{
		"bin": map[string]interface{}{"cli": "bin/cli"},
	}

	derived := Merge(base, overrides)
	derived["name"] = "changed"
	derived["engines"].(map[string]interface{})["node"] = "changed"
	derived["keywords"].([]interface{})[0] = "changed"
	derived["bin"].(map[string]interface{})["cli"] = "changed"

	if base["name"] != "root" {
		t.Errorf("base name mutated: %v", base["name"])
	}
	if got := base["engines"].(map[string]interface{})["node"]; got != ">=4" {
		t.Errorf("base engines mutated: %v", got)
	}
	if got := base["keywords"].([]interface{})[0]; got != "a" {
		t.Errorf("base keywords mutated: %v", got)
	}
	if got := overrides["bin"].(map[string]interface{})["cli"]; got != "bin/cli" {
		t.Errorf("overrides mutated: %v", got)
	}
}

func TestMerge_NilBase(t *testing.T) {
	derived := Merge(nil, OverrideSet{"name": "test"})
	if derived["name"] != "test" {
		t.Errorf("name = %v, want test", derived["name"])
	}
}

func TestBuild_WritesDerivedManifest(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "old",
		"license": "MIT",
	})

	derived, err := d.Build("package.json", "build/package.json", OverrideSet{
		"name":    "test",
		"engines": "test engines",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	written, err := store.Read("build/package.json")
	if err != nil {
		t.Fatalf("reading written manifest: %v", err)
	}
	if !reflect.DeepEqual(written, derived) {
		t.Errorf("written = %v, want %v", written, derived)
	}
	if written["license"] != "MIT" {
		t.Errorf("license = %v, want MIT", written["license"])
	}
}

func TestBuild_ValidationStopsBeforeWrite(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{
		"name":    "root",
		"author":  "Brian Mann",
		"engines": "old",
	})

	derived, err := d.Build("package.json", "build/package.json", OverrideSet{"name": "test"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if !ve.HasField(FieldVersion) {
		t.Errorf("issues %v do not name %q", ve.Issues, FieldVersion)
	}
	if derived == nil {
		t.Error("expected derived manifest alongside validation error")
	}
	if _, ok := store.Raw("build/package.json"); ok {
		t.Error("manifest was written despite validation failure")
	}
}

func TestBuild_WriteError(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "old",
	})
	store.WriteErr = errors.New("disk full")

	_, err := d.Build("package.json", "build/package.json", nil)
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("error = %v, want ErrWrite", err)
	}
}

func TestBuild_NotFoundStopsPipeline(t *testing.T) {
	d, store := newTestDeriver(t, nil)

	derived, err := d.Build("package.json", "build/package.json", OverrideSet{"name": "test"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if derived != nil {
		t.Errorf("derived = %v, want nil", derived)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d entries, want 0", store.Len())
	}
}

func TestBuild_ConfiguredAuthor(t *testing.T) {
	base := Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Jane Doe",
		"engines": "old",
	}

	d, _ := newTestDeriver(t, base)
	if _, err := d.Build("package.json", "out.json", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("default author: error = %v, want ErrValidation", err)
	}

	d, _ = newTestDeriver(t, base, WithValidator(NewValidator("Jane Doe")))
	if _, err := d.Build("package.json", "out.json", nil); err != nil {
		t.Fatalf("configured author: Build error: %v", err)
	}
}

func TestValidateFile(t *testing.T) {
	d := NewDeriver(NewFileStore())

	if _, err := d.ValidateFile(testPath("root-package.json")); err != nil {
		t.Errorf("root-package.json: %v", err)
	}

	_, err := d.ValidateFile(testPath("missing-version.json"))
	var ve *ValidationError
	if !errors.As(err, &ve) || !ve.HasField(FieldVersion) {
		t.Errorf("missing-version.json: error = %v, want issue naming version", err)
	}
}

func TestDeriver_ConcurrentDerivations(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "old",
	})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dest := fmt.Sprintf("build/%d/package.json", i)
			name := fmt.Sprintf("pkg-%d", i)
			if _, err := d.Build("package.json", dest, OverrideSet{"name": name}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Build error: %v", err)
	}
	if store.Len() != 9 {
		t.Errorf("store holds %d entries, want 9", store.Len())
	}
}

func TestBuild_WithoutValidation(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{"name": "root", "version": "x.y.z"}, WithoutValidation())

	if _, err := d.Build("package.json", "out.json", OverrideSet{"name": "test"}); err != nil {
		t.Fatalf("Build error: %v", err)
	}
	written, err := store.Read("out.json")
	if err != nil {
		t.Fatalf("reading written manifest: %v", err)
	}
	if written["version"] != "x.y.z" {
		t.Errorf("version = %v, want x.y.z", written["version"])
	}
}

func TestBuild_DryRun(t *testing.T) {
	d, store := newTestDeriver(t, Manifest{
		"name":    "root",
		"version": "1.2.3",
		"author":  "Brian Mann",
		"engines": "old",
	}, WithDryRun())

	derived, err := d.Build("package.json", "build/package.json", OverrideSet{"name": "test"})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if derived["name"] != "test" {
		t.Errorf("name = %v, want test", derived["name"])
	}
	if _, ok := store.Raw("build/package.json"); ok {
		t.Error("dry run wrote the derived manifest")
	}
}

func TestBuild_DryRunStillValidates(t *testing.T) {
	d, _ := newTestDeriver(t, Manifest{"name": "root"}, WithDryRun())

	if _, err := d.Build("package.json", "out.json", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
