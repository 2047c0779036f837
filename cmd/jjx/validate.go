package main

import (
	"github.com/spf13/cobra"
)

var validateIntentFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an Intent document against the current repository without running it",
	Long: `validate is equivalent to "apply --dry-run": it runs the precondition,
permission, and change-spec structural gates against an Intent (from --file,
or stdin if omitted) and reports the result, without creating any VCS change.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateIntentFile, "file", "f", "", "path to an Intent JSON file (default: stdin)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	in, err := loadIntent(validateIntentFile)
	if err != nil {
		return err
	}

	res := dryRunApply(a, in)
	setExitCode(emitResult(a.out, res))
	return nil
}
