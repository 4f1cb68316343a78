package manifest

import "fmt"

// Deriver runs the derivation pipeline: load a base manifest, merge an
// OverrideSet into it, validate the result and persist it. It holds no
// mutable state, so one Deriver may serve concurrent derivations.
type Deriver struct {
	store     Store
	validator *Validator

	skipValidate bool
	dryRun       bool
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithValidator replaces the default validator.
func WithValidator(v *Validator) Option {
	return func(d *Deriver) {
		d.validator = v
	}
}

// WithoutValidation makes Build persist derived manifests unchecked.
func WithoutValidation() Option {
	return func(d *Deriver) {
		d.skipValidate = true
	}
}

// WithDryRun makes Build stop before persisting.
func WithDryRun() Option {
	return func(d *Deriver) {
		d.dryRun = true
	}
}

// NewDeriver returns a Deriver that loads and persists through store.
func NewDeriver(store Store, opts ...Option) *Deriver {
	d := &Deriver{
		store:     store,
		validator: NewValidator(DefaultAuthor),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive loads the manifest at basePath and returns it with every key in
// overrides replaced. Keys not in overrides keep their base values.
func (d *Deriver) Derive(basePath string, overrides OverrideSet) (Manifest, error) {
	base, err := d.store.Read(basePath)
	if err != nil {
		return nil, err
	}
	return Merge(base, overrides), nil
}

// Merge returns a new manifest equal to base with each key of overrides set
// to the override's value. Neither input is modified and the result shares
// no maps or slices with them.
func Merge(base Manifest, overrides OverrideSet) Manifest {
	out := base.Clone()
	if out == nil {
		out = make(Manifest, len(overrides))
	}
	for k, v := range overrides {
		out[k] = cloneValue(v)
	}
	return out
}

// Validate checks m against the Deriver's validator.
func (d *Deriver) Validate(m Manifest) error {
	return d.validator.Validate(m)
}

// ValidateFile loads the manifest at path and validates it.
func (d *Deriver) ValidateFile(path string) (Manifest, error) {
	m, err := d.store.Read(path)
	if err != nil {
		return nil, err
	}
	return m, d.validator.Validate(m)
}

// Persist writes m to destPath, replacing whatever is there.
func (d *Deriver) Persist(m Manifest, destPath string) error {
	return d.store.Write(destPath, m)
}

// Build runs derive, validate and persist in order and stops at the first
// failure. Validation is skipped under WithoutValidation and persisting
// under WithDryRun. The derived manifest is returned whenever derivation
// succeeded, even if a later stage failed.
func (d *Deriver) Build(basePath, destPath string, overrides OverrideSet) (Manifest, error) {
	derived, err := d.Derive(basePath, overrides)
	if err != nil {
		return nil, err
	}
	if !d.skipValidate {
		if err := d.Validate(derived); err != nil {
			return derived, err
		}
	}
	if d.dryRun {
		return derived, nil
	}
	if err := d.Persist(derived, destPath); err != nil {
		return derived, err
	}
	return derived, nil
}

// LoadOverrides reads an override file through store.
func LoadOverrides(store Store, path string) (OverrideSet, error) {
	m, err := store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}
	return OverrideSet(m), nil
}
