package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff [from] [to]",
	Short: "Show a Git-format diff between two revisions (default: @- and @)",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	from, to := "@-", "@"
	switch len(args) {
	case 1:
		to = args[0]
	case 2:
		from, to = args[0], args[1]
	}

	_, fromCommit, err := a.repo.ResolveRevision(from)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	_, toCommit, err := a.repo.ResolveRevision(to)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	text, err := a.git.Diff(a.ctx, a.repo.Root(), fromCommit, toCommit)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(map[string]string{"from": from, "to": to, "diff": text}, func(w io.Writer) error {
		_, err := fmt.Fprint(w, text)
		return err
	})
}
