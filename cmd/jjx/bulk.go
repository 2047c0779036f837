package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/output"
	"github.com/agentjj/jjx/internal/symbols"
	"github.com/agentjj/jjx/internal/worker"
)

var (
	bulkAt          string
	bulkConcurrency int
	bulkSymbolName  string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Read or inspect many files concurrently",
}

var bulkReadCmd = &cobra.Command{
	Use:   "read <path>...",
	Short: "Read multiple files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkRead,
}

var bulkSymbolsCmd = &cobra.Command{
	Use:   "symbols <path>...",
	Short: "Extract symbols from multiple source files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkSymbols,
}

var bulkContextCmd = &cobra.Command{
	Use:   "context <path>... --name <symbol>",
	Short: "Fetch a named symbol's context across multiple files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkContext,
}

func init() {
	rootCmd.AddCommand(bulkCmd)
	bulkCmd.AddCommand(bulkReadCmd, bulkSymbolsCmd, bulkContextCmd)
	bulkCmd.PersistentFlags().StringVar(&bulkAt, "at", "", "revision to read from (default: working copy)")
	bulkCmd.PersistentFlags().IntVar(&bulkConcurrency, "concurrency", 0, "worker count (default: number of CPUs)")
	bulkContextCmd.Flags().StringVar(&bulkSymbolName, "name", "", "symbol name to fetch context for")
}

type bulkFileResult struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runBulkRead(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	pool := worker.NewPool[string](bulkConcurrency)
	results := pool.Process(a.ctx, args, func(_ context.Context, path string) (string, error) {
		data, err := a.repo.ReadFile(path, bulkAt)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})

	out := make([]bulkFileResult, len(results))
	failures := 0
	for _, r := range results {
		item := bulkFileResult{Path: r.Path}
		if r.Err != nil {
			item.Error = r.Err.Error()
			failures++
		} else {
			item.Content = r.Value
		}
		out[r.Index] = item
	}

	setExitCode(bulkExitCode(failures))
	return a.out.Emit(out, func(w io.Writer) error {
		for _, item := range out {
			fmt.Fprintf(w, "=== %s ===\n", item.Path)
			if item.Error != "" {
				fmt.Fprintf(w, "error: %s\n", item.Error)
				continue
			}
			fmt.Fprintln(w, item.Content)
		}
		return nil
	})
}

type bulkSymbolsResult struct {
	Path    string           `json:"path"`
	Symbols []symbols.Symbol `json:"symbols,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runBulkSymbols(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	pool := worker.NewPool[[]symbols.Symbol](bulkConcurrency)
	results := pool.Process(a.ctx, args, func(_ context.Context, path string) ([]symbols.Symbol, error) {
		lang, ok := symbols.LanguageFromPath(path)
		if !ok {
			return nil, errs.Repository("unsupported source language for %q", path)
		}
		data, err := a.repo.ReadFile(path, bulkAt)
		if err != nil {
			return nil, err
		}
		return symbols.Extract(data, lang)
	})

	out := make([]bulkSymbolsResult, len(results))
	failures := 0
	for _, r := range results {
		item := bulkSymbolsResult{Path: r.Path}
		if r.Err != nil {
			item.Error = r.Err.Error()
			failures++
		} else {
			item.Symbols = r.Value
		}
		out[r.Index] = item
	}

	setExitCode(bulkExitCode(failures))
	return a.out.Emit(out, func(w io.Writer) error {
		for _, item := range out {
			fmt.Fprintf(w, "=== %s ===\n", item.Path)
			if item.Error != "" {
				fmt.Fprintf(w, "error: %s\n", item.Error)
				continue
			}
			t := output.NewTable(w, "LINE", "KIND", "NAME", "SIGNATURE")
			for _, s := range item.Symbols {
				t.AddRow(fmt.Sprintf("%d-%d", s.StartLine, s.EndLine), string(s.Kind), s.Name, s.Signature)
			}
			if err := t.Render(); err != nil {
				return err
			}
		}
		return nil
	})
}

type bulkContextResult struct {
	Path    string           `json:"path"`
	Found   bool             `json:"found"`
	Context *symbols.Context `json:"context,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runBulkContext(cmd *cobra.Command, args []string) error {
	if bulkSymbolName == "" {
		return fmt.Errorf("bulk context: --name is required")
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	pool := worker.NewPool[*symbols.Context](bulkConcurrency)
	results := pool.Process(a.ctx, args, func(_ context.Context, path string) (*symbols.Context, error) {
		lang, ok := symbols.LanguageFromPath(path)
		if !ok {
			return nil, errs.Repository("unsupported source language for %q", path)
		}
		data, err := a.repo.ReadFile(path, bulkAt)
		if err != nil {
			return nil, err
		}
		ctx, ok, err := symbols.GetContext(data, lang, bulkSymbolName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return &ctx, nil
	})

	out := make([]bulkContextResult, len(results))
	failures := 0
	for _, r := range results {
		item := bulkContextResult{Path: r.Path}
		switch {
		case r.Err != nil:
			item.Error = r.Err.Error()
			failures++
		case r.Value == nil:
			item.Found = false
		default:
			item.Found = true
			item.Context = r.Value
		}
		out[r.Index] = item
	}

	setExitCode(bulkExitCode(failures))
	return a.out.Emit(out, func(w io.Writer) error {
		for _, item := range out {
			fmt.Fprintf(w, "=== %s ===\n", item.Path)
			switch {
			case item.Error != "":
				fmt.Fprintf(w, "error: %s\n", item.Error)
			case !item.Found:
				fmt.Fprintln(w, "not found")
			default:
				fmt.Fprintf(w, "%s %s\n", item.Context.Kind, item.Context.Name)
				if item.Context.Signature != "" {
					fmt.Fprintf(w, "  %s\n", item.Context.Signature)
				}
			}
		}
		return nil
	})
}

func bulkExitCode(failures int) int {
	if failures > 0 {
		return 1
	}
	return 0
}
