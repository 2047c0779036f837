package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/errs"
)

var (
	pushRemote   string
	pushCreatePR bool
	pushPRTitle  string
	pushPRBody   string
)

var pushCmd = &cobra.Command{
	Use:   "push <branch>",
	Short: "Push a branch to the remote, honoring the manifest's push policy",
	Long: `push honors the manifest's push policy, then pushes the branch to the
remote. --create-pr additionally runs "gh pr create" afterward (gh is
optional; its absence is reported as an error only when --create-pr is set).`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVar(&pushRemote, "remote", "origin", "remote to push to")
	pushCmd.Flags().BoolVar(&pushCreatePR, "create-pr", false, "open a pull request via the gh CLI after pushing")
	pushCmd.Flags().StringVar(&pushPRTitle, "pr-title", "", "PR title (required with --create-pr)")
	pushCmd.Flags().StringVar(&pushPRBody, "pr-body", "", "PR body")
}

func runPush(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	branch := args[0]

	if a.repo.HasManifest() {
		m, err := a.repo.Manifest()
		if err != nil {
			return err
		}
		if !m.Permissions.CanPush(branch) {
			setExitCode(a.out.EmitError(errs.PermissionDenied("push", branch)))
			return nil
		}
		for _, p := range m.Branches.Protected {
			if p == branch {
				setExitCode(a.out.EmitError(errs.PermissionDenied("push to protected branch", branch)))
				return nil
			}
		}
	}

	if err := a.git.Push(a.ctx, a.repo.Root(), pushRemote, branch); err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	result := map[string]string{"remote": pushRemote, "branch": branch}

	if pushCreatePR {
		if pushPRTitle == "" {
			return fmt.Errorf("push --create-pr requires --pr-title")
		}
		prURL, err := a.gh.CreatePR(a.ctx, a.repo.Root(), pushPRTitle, pushPRBody)
		if err != nil {
			setExitCode(a.out.EmitError(err))
			return nil
		}
		result["pr_url"] = prURL
	}

	setExitCode(0)
	return a.out.Emit(result, func(w io.Writer) error {
		fmt.Fprintf(w, "pushed %s to %s\n", branch, pushRemote)
		if prURL, ok := result["pr_url"]; ok {
			fmt.Fprintf(w, "pr: %s\n", prURL)
		}
		return nil
	})
}
