package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var quickstartCmd = &cobra.Command{
	Use:   "quickstart",
	Short: "Bootstrap jjx in the current repository and print the next few commands to try",
	Long: `quickstart runs the same bootstrap as init, then prints a short walk-through
for an agent caller that has never used jjx in this repository before.`,
	RunE: runQuickstart,
}

func init() {
	rootCmd.AddCommand(quickstartCmd)
}

func runQuickstart(cmd *cobra.Command, args []string) error {
	if err := runInit(cmd, args); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if a.out.JSON() {
		return nil
	}

	return a.out.Emit(nil, func(w io.Writer) error {
		fmt.Fprintln(w, "\nnext steps:")
		fmt.Fprintln(w, "  jjx orient              # see where the repo stands")
		fmt.Fprintln(w, "  jjx manifest show       # review the policy jjx init wrote")
		fmt.Fprintln(w, "  jjx schema              # see the Intent JSON shape `jjx apply` expects")
		fmt.Fprintln(w, "  jjx apply --dry-run -f intent.json   # validate an Intent before mutating anything")
		return nil
	})
}
