package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/output"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Print a self-contained usage guide for an agent calling jjx programmatically",
	RunE:  runSkill,
}

func init() {
	rootCmd.AddCommand(skillCmd)
}

const skillText = `jjx is a porcelain over jj (Jujutsu), colocated with Git, built for agent
callers rather than interactive humans.

Workflow:
  1. jjx orient               orients you: current change, recent log, manifest policy.
  2. Build an Intent (see "jjx schema" for the JSON shape) describing a patch,
     a patch file, or a list of create/replace/delete/rename file operations,
     plus any preconditions (operation id, branch-at, file presence/hash).
  3. jjx apply --dry-run -f intent.json
     validates preconditions, permissions, and change-spec structure without
     mutating anything.
  4. jjx apply -f intent.json
     runs the real transaction. Read the "kind" field of the result:
       success             - change committed, files_changed lists what moved.
       precondition_failed - nothing happened; reason/expected/actual explain why.
       permission_denied   - nothing happened; action/path name the violation.
       requires_review     - a change was created but touches review_paths;
                             a human must look at it before it's trusted.
       conflict            - a change was created with conflicts; rollback_command
                             is a ready-to-run "jj op restore <op>" command.
       invariant_failed    - a change was created but failed a policy check;
                             same rollback_command contract as conflict.
  5. jjx checkpoint create <name> before a risky sequence of applies, and
     jjx undo --to <name> to return to it if something goes wrong.

Read-only inspection: jjx status, jjx change {show|list}, jjx read, jjx symbol,
jjx context, jjx bulk {read|symbols|context}, jjx files, jjx diff, jjx affected,
jjx doctor, jjx graph.

Everything above accepts --json for machine-readable output. Exit code 0 means
logical success (including a "success" apply result); 1 means any other
result kind or a hard error.`

func runSkill(cmd *cobra.Command, args []string) error {
	// skill only prints a hardcoded guide, so it skips newApp's repository
	// discovery (see app.go) and builds its own minimal writer.
	out := output.New(outputFormat(), os.Stdout, os.Stderr)
	setExitCode(0)
	return out.Emit(map[string]string{"skill": skillText}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, skillText)
		return err
	})
}
