package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/changestore"
	"github.com/agentjj/jjx/internal/output"
)

var affectedCmd = &cobra.Command{
	Use:   "affected <path>",
	Short: "List typed-changes whose files list contains this path",
	Long: `affected is a lightweight impact query: given a path, it scans every
typed-change record under .agent/changes and reports which ones touched it,
tracing an artifact back to the change(s) that produced it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAffected,
}

func init() {
	rootCmd.AddCommand(affectedCmd)
}

func runAffected(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path := args[0]

	all, err := a.changes.List()
	if err != nil {
		return err
	}

	var matches []*changestore.TypedChange
	for _, c := range all {
		for _, f := range c.Files {
			if f == path {
				matches = append(matches, c)
				break
			}
		}
	}

	setExitCode(0)
	return a.out.Emit(matches, func(w io.Writer) error {
		if len(matches) == 0 {
			_, err := fmt.Fprintf(w, "no recorded change touched %s\n", path)
			return err
		}
		t := output.NewTable(w, "CHANGE", "TYPE", "BREAKING", "INTENT")
		for _, c := range matches {
			t.AddRow(c.ChangeID, string(c.Type), fmt.Sprint(c.Breaking), c.Intent)
		}
		return t.Render()
	})
}
