package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/output"
	"github.com/agentjj/jjx/internal/symbols"
)

var symbolName string

var symbolCmd = &cobra.Command{
	Use:   "symbol <path>",
	Short: "List symbols in a source file, or find one by --name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbol,
}

func init() {
	rootCmd.AddCommand(symbolCmd)
	symbolCmd.Flags().StringVar(&symbolName, "name", "", "show only the symbol with this name")
}

func runSymbol(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path := args[0]

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

	if symbolName != "" {
		sym, found, err := symbols.Find(data, lang, symbolName)
		if err != nil {
			setExitCode(a.out.EmitError(err))
			return nil
		}
		if !found {
			setExitCode(a.out.EmitError(errs.NotFound(symbolName, "")))
			return nil
		}
		setExitCode(0)
		return a.out.Emit(sym, func(w io.Writer) error {
			return printSymbolRow(w, sym)
		})
	}

	list, err := symbols.Extract(data, lang)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	setExitCode(0)
	return a.out.Emit(list, func(w io.Writer) error {
		t := output.NewTable(w, "LINE", "KIND", "NAME", "SIGNATURE")
		for _, s := range list {
			t.AddRow(fmt.Sprintf("%d-%d", s.StartLine, s.EndLine), string(s.Kind), s.Name, s.Signature)
		}
		return t.Render()
	})
}

func printSymbolRow(w io.Writer, s symbols.Symbol) error {
	fmt.Fprintf(w, "%s %s (lines %d-%d)\n", s.Kind, s.Name, s.StartLine, s.EndLine)
	if s.Signature != "" {
		fmt.Fprintf(w, "  %s\n", s.Signature)
	}
	if s.Docstring != "" {
		fmt.Fprintf(w, "  %q\n", s.Docstring)
	}
	return nil
}
