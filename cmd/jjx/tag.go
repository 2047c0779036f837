package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag <name> [revision]",
	Short: "Create a lightweight tag at a revision (default: the working copy)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	rev := ""
	if len(args) == 2 {
		rev = args[1]
	}

	if err := a.git.Tag(a.ctx, a.repo.Root(), name, rev); err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(map[string]string{"tag": name, "revision": rev}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "tagged %s\n", name)
		return err
	})
}
