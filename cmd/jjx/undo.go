package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

var undoTo string

var undoCmd = &cobra.Command{
	Use:   "undo [n]",
	Short: "Restore to a prior operation",
	Long: `undo restores the repository to the operation n steps before the
current one (default 1). --to <checkpoint-name> instead restores to the
operation recorded by a named checkpoint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)
	undoCmd.Flags().StringVar(&undoTo, "to", "", "restore to the operation recorded by this checkpoint")
}

func runUndo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if undoTo != "" {
		cp, err := a.checks.Load(undoTo)
		if err != nil {
			setExitCode(a.out.EmitError(err))
			return nil
		}
		if err := a.repo.Driver().RestoreToOperation(cp.OperationID); err != nil {
			setExitCode(a.out.EmitError(err))
			return nil
		}
		setExitCode(0)
		return a.out.Emit(map[string]string{"restored_to": cp.OperationID, "checkpoint": cp.Name}, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "restored to checkpoint %q (operation %s)\n", cp.Name, cp.OperationID)
			return err
		})
	}

	n := 1
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("undo: %q is not an integer step count", args[0])
		}
		n = parsed
	}

	if err := a.repo.Undo(n); err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	opID, err := a.repo.CurrentOperationID()
	if err != nil {
		return err
	}

	setExitCode(0)
	return a.out.Emit(map[string]string{"restored_to": opID}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "restored to operation %s (%d step(s) back)\n", opID, n)
		return err
	})
}
