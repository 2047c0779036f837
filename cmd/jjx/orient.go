package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var orientCmd = &cobra.Command{
	Use:   "orient",
	Short: "Summarize where the repository currently stands, for an agent caller",
	Long: `orient is status plus enough narrative context for an agent resuming work
to decide its next move: recent log entries, pending typed changes, and any
invariants a commit would run.`,
	RunE: runOrient,
}

func init() {
	rootCmd.AddCommand(orientCmd)
}

type orientOutput struct {
	statusOutput
	RecentLog       []logLine `json:"recent_log"`
	OpenChangeCount int       `json:"open_change_count"`
	PreCommitChecks []string  `json:"pre_commit_checks,omitempty"`
}

type logLine struct {
	ChangeID    string `json:"change_id"`
	Description string `json:"description"`
	IsWorking   bool   `json:"is_working_copy"`
}

func runOrient(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	st := statusOutput{Root: a.repo.Root(), HasManifest: a.repo.HasManifest()}
	if st.ChangeID, err = a.repo.CurrentChangeID(); err != nil {
		return err
	}
	if st.CommitID, err = a.repo.CurrentCommitID(); err != nil {
		return err
	}
	if st.OperationID, err = a.repo.CurrentOperationID(); err != nil {
		return err
	}

	entries, err := a.repo.Driver().LogEntries(10, false)
	if err != nil {
		return err
	}
	result := orientOutput{statusOutput: st}
	for _, e := range entries {
		result.RecentLog = append(result.RecentLog, logLine{
			ChangeID:    e.ShortChangeID,
			Description: e.Description,
			IsWorking:   e.IsWorkingCopy,
		})
	}

	changes, err := a.changes.List()
	if err != nil {
		return err
	}
	result.OpenChangeCount = len(changes)

	if st.HasManifest {
		m, err := a.repo.Manifest()
		if err != nil {
			return err
		}
		st.TrunkBranch = m.Branches.Trunk
		st.ProtectedCount = len(m.Branches.Protected)
		result.statusOutput = st
		for _, entry := range m.InvariantsFor("pre-commit") {
			result.PreCommitChecks = append(result.PreCommitChecks, entry.Name)
		}
	}

	return a.out.Emit(result, func(w io.Writer) error {
		fmt.Fprintf(w, "at %s (change %s, operation %s)\n", result.Root, result.ChangeID, result.OperationID)
		if result.HasManifest {
			fmt.Fprintf(w, "trunk: %s, pre-commit checks: %d\n", result.TrunkBranch, len(result.PreCommitChecks))
		} else {
			fmt.Fprintln(w, "no manifest — run `jjx init` to adopt a policy")
		}
		fmt.Fprintf(w, "typed changes recorded: %d\n", result.OpenChangeCount)
		if len(result.RecentLog) > 0 {
			fmt.Fprintln(w, "\nrecent log:")
			for _, l := range result.RecentLog {
				marker := " "
				if l.IsWorking {
					marker = "@"
				}
				fmt.Fprintf(w, "  %s %s %s\n", marker, l.ChangeID, l.Description)
			}
		}
		return nil
	})
}
