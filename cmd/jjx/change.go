package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/changestore"
	"github.com/agentjj/jjx/internal/output"
	"github.com/agentjj/jjx/internal/taxonomy"
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Inspect or annotate typed-change records under .agent/changes",
}

var (
	changeListType     string
	changeListBreaking bool
)

var changeShowCmd = &cobra.Command{
	Use:   "show <change-id>",
	Short: "Print one typed-change record",
	Args:  cobra.ExactArgs(1),
	RunE:  runChangeShow,
}

var changeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List typed-change records, optionally filtered",
	RunE:  runChangeList,
}

var changeSetCmd = &cobra.Command{
	Use:   "set <change-id> <key> <value>",
	Short: "Set a free-form metadata field on a typed-change record",
	Args:  cobra.ExactArgs(3),
	RunE:  runChangeSet,
}

func init() {
	rootCmd.AddCommand(changeCmd)
	changeCmd.AddCommand(changeShowCmd, changeListCmd, changeSetCmd)
	changeListCmd.Flags().StringVar(&changeListType, "type", "", "filter by change type")
	changeListCmd.Flags().BoolVar(&changeListBreaking, "breaking", false, "only show breaking changes")
}

func runChangeShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	c, err := a.changes.Load(args[0])
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	setExitCode(0)
	return a.out.Emit(c, func(w io.Writer) error {
		return printChangeRow(w, c)
	})
}

func runChangeList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var list []*changestore.TypedChange
	switch {
	case changeListBreaking:
		list, err = a.changes.Breaking()
	case changeListType != "":
		list, err = a.changes.ByType(taxonomy.ChangeType(changeListType))
	default:
		list, err = a.changes.List()
	}
	if err != nil {
		return err
	}

	return a.out.Emit(list, func(w io.Writer) error {
		t := output.NewTable(w, "CHANGE", "TYPE", "BREAKING", "FILES", "INTENT")
		for _, c := range list {
			t.AddRow(c.ChangeID, string(c.Type), fmt.Sprint(c.Breaking), fmt.Sprint(len(c.Files)), c.Intent)
		}
		return t.Render()
	})
}

func runChangeSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	changeID, key, value := args[0], args[1], args[2]

	c, err := a.changes.Load(changeID)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Metadata[key] = value
	if err := a.changes.Save(c); err != nil {
		return err
	}

	setExitCode(0)
	return a.out.Emit(c, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "set %s.%s = %q\n", changeID, key, value)
		return err
	})
}

func printChangeRow(w io.Writer, c *changestore.TypedChange) error {
	fmt.Fprintf(w, "change_id: %s\n", c.ChangeID)
	fmt.Fprintf(w, "type:      %s\n", c.Type)
	if c.Category != nil {
		fmt.Fprintf(w, "category:  %s\n", *c.Category)
	}
	fmt.Fprintf(w, "intent:    %s\n", c.Intent)
	fmt.Fprintf(w, "breaking:  %t\n", c.Breaking)
	fmt.Fprintf(w, "invariants: %s\n", c.Invariants.Status)
	for _, f := range c.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}
