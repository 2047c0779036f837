package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files [change-id]",
	Short: "List files touched by a change (default: the working copy)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var changeID string
	if len(args) == 1 {
		changeID = args[0]
	} else {
		cur, err := a.repo.CurrentChangeID()
		if err != nil {
			return err
		}
		changeID = cur
	}

	list, err := a.repo.ChangedFiles(changeID)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(list, func(w io.Writer) error {
		for _, f := range list {
			fmt.Fprintln(w, f)
		}
		return nil
	})
}
