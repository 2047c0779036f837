package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/repo"
)

var (
	commitMessage   string
	commitPaths     []string
	commitNoInvariants bool
	commitNoNew     bool
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the working copy",
	Long: `commit snapshots the working copy, optionally scoped to --paths, runs
pre-commit invariants (unless --no-invariants), rewrites the current commit,
advances to a fresh empty working-copy commit (unless --no-new), and
resynchronizes the colocated Git branch and HEAD.`,
	RunE: runCommit,
}

func init() {
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit description")
	commitCmd.Flags().StringSliceVar(&commitPaths, "paths", nil, "restrict the commit to these paths")
	commitCmd.Flags().BoolVar(&commitNoInvariants, "no-invariants", false, "skip pre-commit invariants")
	commitCmd.Flags().BoolVar(&commitNoNew, "no-new", false, "don't create a new empty working-copy commit")
}

type commitOutput struct {
	ChangeID     string   `json:"change_id"`
	CommitID     string   `json:"commit_id"`
	FilesChanged []string `json:"files_changed"`
}

func runCommit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	opts := repo.CommitOptions{
		Description:   commitMessage,
		Paths:         commitPaths,
		RunInvariants: !commitNoInvariants,
		NoNew:         commitNoNew,
	}

	result, err := a.repo.CommitWorkingCopy(a.ctx, opts)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	out := commitOutput{ChangeID: result.ChangeID, CommitID: result.CommitID, FilesChanged: result.FilesChanged}
	return a.out.Emit(out, func(w io.Writer) error {
		fmt.Fprintf(w, "committed %s (%s)\n", out.ChangeID, out.CommitID)
		if len(out.FilesChanged) > 0 {
			fmt.Fprintln(w, strings.Join(out.FilesChanged, "\n"))
		}
		return nil
	})
}
