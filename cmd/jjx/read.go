package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var readAt string

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file from the working copy or a given revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringVar(&readAt, "at", "", "revision to read from (default: working copy)")
}

type readOutput struct {
	Path    string `json:"path"`
	At      string `json:"at,omitempty"`
	Content string `json:"content"`
}

func runRead(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	data, err := a.repo.ReadFile(args[0], readAt)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	result := readOutput{Path: args[0], At: readAt, Content: string(data)}
	return a.out.Emit(result, func(w io.Writer) error {
		_, err := fmt.Fprint(w, result.Content)
		return err
	})
}
