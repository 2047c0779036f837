package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/symbols"
)

var contextCmd = &cobra.Command{
	Use:   "context <path> <symbol>",
	Short: "Print a symbol's usage context: signature, docstring, and needed imports",
	Args:  cobra.ExactArgs(2),
	RunE:  runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path, name := args[0], args[1]

	lang, ok := symbols.LanguageFromPath(path)
	if !ok {
		setExitCode(a.out.EmitError(errs.Repository("unsupported source language for %q", path)))
		return nil
	}

	data, err := a.repo.ReadFile(path, "")
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	ctx, found, err := symbols.GetContext(data, lang, name)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	if !found {
		setExitCode(a.out.EmitError(errs.NotFound(name, "")))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(ctx, func(w io.Writer) error {
		fmt.Fprintf(w, "%s %s\n", ctx.Kind, ctx.Name)
		if ctx.Signature != "" {
			fmt.Fprintf(w, "  %s\n", ctx.Signature)
		}
		if ctx.Docstring != "" {
			fmt.Fprintf(w, "  %q\n", ctx.Docstring)
		}
		if len(ctx.ImportsNeeded) > 0 {
			fmt.Fprintln(w, "imports needed:")
			for _, imp := range ctx.ImportsNeeded {
				fmt.Fprintf(w, "  %s\n", imp)
			}
		}
		return nil
	})
}
