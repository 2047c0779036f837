package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved CLI configuration and where each value came from",
	Long: `config show prints the effective jjx CLI configuration, resolved through
flags > environment (JJX_*) > .agent/cli.yaml > ~/.jjx/config.yaml > defaults.

This is the CLI's own configuration, distinct from the repository's
.agent/manifest.toml policy (see "jjx manifest show" for that).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration and each value's source",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	flagOutput := ""
	if jsonOutput {
		flagOutput = "json"
	}
	resolved := config.Resolve(a.repo.Root(), flagOutput, "", verbose)

	setExitCode(0)
	return a.out.Emit(resolved, func(w io.Writer) error {
		fmt.Fprintf(w, "output:          %-6v (from %s)\n", resolved.Output.Value, resolved.Output.Source)
		fmt.Fprintf(w, "verbose:         %-6v (from %s)\n", resolved.Verbose.Value, resolved.Verbose.Source)
		fmt.Fprintf(w, "default_trigger: %-6v (from %s)\n", resolved.DefaultTrigger.Value, resolved.DefaultTrigger.Source)
		return nil
	})
}
