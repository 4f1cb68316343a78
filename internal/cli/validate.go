package cli

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/pkgderive/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	validateAuthor string
	validateStrict bool
)

func init() {
	validateCmd.Flags().StringVar(&validateAuthor, "author", "", "Expected author (default from config)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Also apply npm publishing rules (name pattern, engines and dependency shapes)")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [manifest]",
	Short: "Validate a package manifest",
	Long: `Validate a package manifest against the rules derive applies: required
fields (name, version, author, engines), semantic-version syntax, the expected
author and the field types of the package schema. --strict adds npm's
publishing rules.

Without an argument the configured base manifest is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.BasePath()
		if len(args) == 1 {
			path = args[0]
		}
		author := firstNonEmpty(validateAuthor, cfg.Author())

		d := manifest.NewDeriver(manifest.NewFileStore(), manifest.WithValidator(newValidator(author, validateStrict)))
		m, err := d.ValidateFile(path)
		if err != nil {
			printIssues(cmd, path, err)
			return err
		}

		name, _ := m.GetString(manifest.FieldName)
		version, _ := m.GetString(manifest.FieldVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "[ OK ] Valid manifest: %s (v%s)\n", name, version)
		return nil
	},
}

// printIssues reports a validation failure one issue per line. Other errors
// are left to the caller.
func printIssues(cmd *cobra.Command, path string, err error) {
	var ve *manifest.ValidationError
	if !errors.As(err, &ve) {
		return
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "[FAIL] %s: %d validation issue(s):\n", path, len(ve.Issues))
	for _, issue := range ve.Issues {
		if issue.Path != "" {
			fmt.Fprintf(w, "    - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "    - %s\n", issue.Message)
		}
	}
}
