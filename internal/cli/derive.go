package cli

import (
	"fmt"
	"strings"

	"github.com/agentx-labs/pkgderive/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	deriveBase         string
	deriveOut          string
	deriveOverrides    string
	deriveSet          []string
	deriveAuthor       string
	deriveDryRun       bool
	deriveSkipValidate bool
	deriveStrict       bool
)

func init() {
	deriveCmd.Flags().StringVar(&deriveBase, "base", "", "Base manifest (default from config, package.json)")
	deriveCmd.Flags().StringVar(&deriveOut, "out", "", "Derived manifest destination (default from config, build/package.json)")
	deriveCmd.Flags().StringVar(&deriveOverrides, "overrides", "", "Manifest file whose fields override the base")
	deriveCmd.Flags().StringArrayVar(&deriveSet, "set", nil, "Override a field (key=value, repeatable; {..} and [..] values are parsed)")
	deriveCmd.Flags().StringVar(&deriveAuthor, "author", "", "Expected author (default from config)")
	deriveCmd.Flags().BoolVar(&deriveDryRun, "dry-run", false, "Print the derived manifest instead of writing it")
	deriveCmd.Flags().BoolVar(&deriveSkipValidate, "skip-validate", false, "Write the derived manifest without validating it")
	deriveCmd.Flags().BoolVar(&deriveStrict, "strict", false, "Also apply npm publishing rules (name pattern, engines and dependency shapes)")
	rootCmd.AddCommand(deriveCmd)
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a package manifest from a base manifest and overrides",
	Long: `Derive a package manifest.

The base manifest is copied, every override field replaces its counterpart,
the result is validated (required fields, semantic version, expected author,
field types) and written to the destination, replacing any previous file.

Overrides from --overrides are applied first, then --set pairs in order.`,
	Example: `  pkgderive derive --base package.json --overrides cli/package.json --out build/package.json
  pkgderive derive --set name=test --set 'engines={node: ">=18"}' --dry-run`,
	Args: cobra.NoArgs,
	RunE: runDerive,
}

func runDerive(cmd *cobra.Command, args []string) error {
	base := firstNonEmpty(deriveBase, cfg.BasePath())
	out := firstNonEmpty(deriveOut, cfg.OutPath())
	author := firstNonEmpty(deriveAuthor, cfg.Author())

	store := manifest.NewFileStore()
	opts := []manifest.Option{manifest.WithValidator(newValidator(author, deriveStrict))}
	if deriveSkipValidate {
		opts = append(opts, manifest.WithoutValidation())
	}
	if deriveDryRun {
		opts = append(opts, manifest.WithDryRun())
	}
	d := manifest.NewDeriver(store, opts...)

	overrides, err := collectOverrides(store, deriveOverrides, deriveSet)
	if err != nil {
		return err
	}

	derived, err := d.Build(base, out, overrides)
	if err != nil {
		printIssues(cmd, base, err)
		return err
	}

	if deriveDryRun {
		data, err := manifest.Encode(derived, manifest.FormatFor(out))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	overridden := "none"
	if len(overrides) > 0 {
		overridden = strings.Join(overrides.Keys(), ", ")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Derived %s from %s (overrides: %s)\n", out, base, overridden)
	return nil
}

// newValidator builds the validator derive and validate share.
func newValidator(author string, strict bool) *manifest.Validator {
	if strict {
		return manifest.NewValidator(author, manifest.Strict())
	}
	return manifest.NewValidator(author)
}

// collectOverrides merges the override file (if any) with --set pairs,
// letting the pairs win.
func collectOverrides(store manifest.Store, file string, pairs []string) (manifest.OverrideSet, error) {
	overrides := manifest.OverrideSet{}
	if file != "" {
		fromFile, err := manifest.LoadOverrides(store, file)
		if err != nil {
			return nil, err
		}
		overrides = fromFile
	}

	fromFlags, err := manifest.ParseAssignments(pairs)
	if err != nil {
		return nil, err
	}
	return overrides.With(fromFlags), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
