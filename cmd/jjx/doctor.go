package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of the jjx-managed repository",
	Long: `doctor reports VCS driver reachability, manifest parse status, Git
colocation state, and whether the working-copy lock appears stale. It is
read-only and never mutates the repository.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // pass, warn, fail
	Detail string `json:"detail"`
}

type doctorOutput struct {
	Checks []doctorCheck `json:"checks"`
	Result string        `json:"result"` // healthy, degraded, unhealthy
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var checks []doctorCheck

	if opID, err := a.repo.CurrentOperationID(); err != nil {
		checks = append(checks, doctorCheck{Name: "vcs driver", Status: "fail", Detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{Name: "vcs driver", Status: "pass", Detail: fmt.Sprintf("reachable at operation %s", opID)})
	}

	if a.repo.HasManifest() {
		if _, err := a.repo.Manifest(); err != nil {
			checks = append(checks, doctorCheck{Name: "manifest", Status: "fail", Detail: err.Error()})
		} else {
			checks = append(checks, doctorCheck{Name: "manifest", Status: "pass", Detail: manifestPathFor(a.repo.Root())})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "manifest", Status: "warn", Detail: "no .agent/manifest.toml — run `jjx init`"})
	}

	gitDir := filepath.Join(a.repo.Root(), ".git")
	if _, err := os.Stat(gitDir); err == nil {
		checks = append(checks, doctorCheck{Name: "git colocation", Status: "pass", Detail: gitDir})
	} else {
		checks = append(checks, doctorCheck{Name: "git colocation", Status: "warn", Detail: "no .git directory found alongside the jj repository"})
	}

	lockPath := filepath.Join(a.repo.Root(), ".jj", "working_copy", "lock")
	if info, err := os.Stat(lockPath); err == nil {
		checks = append(checks, doctorCheck{
			Name:   "working-copy lock",
			Status: "warn",
			Detail: fmt.Sprintf("lock file present since %s — stale if no jj process is running", info.ModTime().Format("2006-01-02T15:04:05Z07:00")),
		})
	} else {
		checks = append(checks, doctorCheck{Name: "working-copy lock", Status: "pass", Detail: "not held"})
	}

	result := doctorOutput{Checks: checks, Result: "healthy"}
	for _, c := range checks {
		switch c.Status {
		case "fail":
			result.Result = "unhealthy"
		case "warn":
			if result.Result != "unhealthy" {
				result.Result = "degraded"
			}
		}
	}

	code := 0
	if result.Result == "unhealthy" {
		code = 1
	}
	setExitCode(code)

	return a.out.Emit(result, func(w io.Writer) error {
		fmt.Fprintln(w, "jjx doctor")
		for _, c := range result.Checks {
			fmt.Fprintf(w, "  [%s] %-20s %s\n", statusIcon(c.Status), c.Name, c.Detail)
		}
		fmt.Fprintf(w, "\n%s\n", result.Result)
		return nil
	})
}

func manifestPathFor(root string) string {
	return filepath.Join(root, ".agent", "manifest.toml")
}

func statusIcon(status string) string {
	switch status {
	case "pass":
		return "ok"
	case "warn":
		return "!!"
	default:
		return "XX"
	}
}
