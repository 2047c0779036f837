package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show repository and manifest state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Root           string `json:"root"`
	ChangeID       string `json:"change_id"`
	CommitID       string `json:"commit_id"`
	OperationID    string `json:"operation_id"`
	HasManifest    bool   `json:"has_manifest"`
	TrunkBranch    string `json:"trunk_branch,omitempty"`
	ProtectedCount int    `json:"protected_branch_count,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	out := statusOutput{Root: a.repo.Root(), HasManifest: a.repo.HasManifest()}

	if out.ChangeID, err = a.repo.CurrentChangeID(); err != nil {
		return err
	}
	if out.CommitID, err = a.repo.CurrentCommitID(); err != nil {
		return err
	}
	if out.OperationID, err = a.repo.CurrentOperationID(); err != nil {
		return err
	}
	if out.HasManifest {
		m, err := a.repo.Manifest()
		if err != nil {
			return err
		}
		out.TrunkBranch = m.Branches.Trunk
		out.ProtectedCount = len(m.Branches.Protected)
	}

	return a.out.Emit(out, func(w io.Writer) error {
		fmt.Fprintf(w, "root:      %s\n", out.Root)
		fmt.Fprintf(w, "change:    %s\n", out.ChangeID)
		fmt.Fprintf(w, "commit:    %s\n", out.CommitID)
		fmt.Fprintf(w, "operation: %s\n", out.OperationID)
		if out.HasManifest {
			fmt.Fprintf(w, "manifest:  present (trunk %s, %d protected)\n", out.TrunkBranch, out.ProtectedCount)
		} else {
			fmt.Fprintln(w, "manifest:  absent (run `jjx init`)")
		}
		return nil
	})
}
