package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/vcsdriver"
)

var (
	graphFormat string
	graphLimit  int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the change log as ascii, mermaid, or dot",
	RunE:  runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVar(&graphFormat, "format", "ascii", "one of: ascii, mermaid, dot")
	graphCmd.Flags().IntVar(&graphLimit, "limit", 20, "maximum number of log entries to include")
}

func runGraph(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	entries, err := a.repo.Driver().LogEntries(graphLimit, false)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	var render func([]vcsdriver.LogEntry) string
	switch graphFormat {
	case "ascii":
		render = renderGraphASCII
	case "mermaid":
		render = renderGraphMermaid
	case "dot":
		render = renderGraphDot
	default:
		return fmt.Errorf("graph: unknown --format %q (want ascii, mermaid, or dot)", graphFormat)
	}

	text := render(entries)
	nodes := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, map[string]interface{}{
			"id":             e.ShortChangeID,
			"parents":        e.ParentShortIDs,
			"full_commit_id": e.CommitID,
			"timestamp":      e.AuthorTimestamp,
			"author":         e.AuthorNameOrMail,
		})
	}
	setExitCode(0)
	return a.out.Emit(map[string]interface{}{"format": graphFormat, "graph": text, "nodes": nodes}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, text)
		return err
	})
}

func renderGraphASCII(entries []vcsdriver.LogEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		marker := "o"
		if e.IsWorkingCopy {
			marker = "@"
		}
		fmt.Fprintf(&sb, "%s  %s %s", marker, e.ShortChangeID, e.Description)
		if len(e.ParentShortIDs) > 0 {
			fmt.Fprintf(&sb, "  (parents: %s)", strings.Join(e.ParentShortIDs, ", "))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderGraphMermaid(entries []vcsdriver.LogEntry) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, e := range entries {
		label := e.ShortChangeID
		if e.Description != "" {
			label = fmt.Sprintf("%s[%q]", e.ShortChangeID, e.Description)
		}
		fmt.Fprintf(&sb, "  %s\n", label)
		for _, p := range e.ParentShortIDs {
			fmt.Fprintf(&sb, "  %s --> %s\n", p, e.ShortChangeID)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderGraphDot(entries []vcsdriver.LogEntry) string {
	var sb strings.Builder
	sb.WriteString("digraph jjx {\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %q [label=%q];\n", e.ShortChangeID, e.ShortChangeID+" "+e.Description)
		for _, p := range e.ParentShortIDs {
			fmt.Fprintf(&sb, "  %q -> %q;\n", p, e.ShortChangeID)
		}
	}
	sb.WriteString("}")
	return sb.String()
}
