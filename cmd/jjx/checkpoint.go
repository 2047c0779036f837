package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/output"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create or list named recovery points",
}

var checkpointDescription string

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Record the current change id and operation id under a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointCreate,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	RunE:  runCheckpointList,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointCreateCmd, checkpointListCmd)
	checkpointCreateCmd.Flags().StringVar(&checkpointDescription, "description", "", "optional free-form description")
}

func runCheckpointCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	changeID, err := a.repo.CurrentChangeID()
	if err != nil {
		return err
	}
	opID, err := a.repo.CurrentOperationID()
	if err != nil {
		return err
	}

	cp, err := a.checks.Create(args[0], checkpointDescription, changeID, opID)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(cp, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "checkpoint %q created at change %s, operation %s\n", cp.Name, cp.ChangeID, cp.OperationID)
		return err
	})
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	list, err := a.checks.List()
	if err != nil {
		return err
	}
	return a.out.Emit(list, func(w io.Writer) error {
		t := output.NewTable(w, "NAME", "TIMESTAMP", "CHANGE", "OPERATION")
		for _, c := range list {
			t.AddRow(c.Name, c.Timestamp, c.ChangeID, c.OperationID)
		}
		return t.Render()
	})
}
