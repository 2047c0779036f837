package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
	repoDir    string

	// exitCode is the process exit status main() reports after Execute()
	// returns: 0 for a logical success (including an apply Success result),
	// 1 for any structured non-success or hard error. Individual commands
	// set it via setExitCode; it is never read until the whole command tree
	// has finished running.
	exitCode int
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jjx",
	Short: "Agent-oriented porcelain over jj, colocated with Git",
	Long: `jjx gives autonomous code-editing agents a narrow, structured,
machine-parseable surface for making, validating, and rolling back
repository changes while preserving jj's version-control invariants.

The core is the intent transaction engine: a declarative intent
(description + preconditions + change spec + policy) becomes an atomic
VCS transaction with a well-defined outcome — success, conflict,
precondition failure, invariant failure, permission denial, or
review-required — each carrying a structured rollback handle.

Get started:
  jjx init         Initialize a manifest in the current repository
  jjx quickstart    Print a guided walkthrough for agent callers
  jjx status        Show repository and manifest state

Core commands:
  jjx apply         Run an intent through the transaction engine
  jjx commit        Commit the working copy
  jjx orient        Summarize where the repository currently stands
  jjx undo          Restore to a prior operation`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&repoDir, "repo", "C", "", "Repository directory (default: current directory)")
}

// setExitCode records the process exit status a command produced. 0 means
// logical success; any other command outcome sets 1.
func setExitCode(code int) {
	exitCode = code
}
