package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/intent"
	"github.com/agentjj/jjx/internal/output"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema for an Intent document",
	Long:  `schema reflects internal/intent.Intent into a JSON Schema, for callers building Intent documents programmatically.`,
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	// schema only reflects the static intent.Intent type, so it skips
	// newApp's repository discovery (see app.go) and builds its own
	// minimal writer.
	out := output.New(outputFormat(), os.Stdout, os.Stderr)

	r := jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&intent.Intent{})
	schema.Title = "Intent"
	schema.Description = "a single declarative unit of work for jjx apply"

	setExitCode(0)
	return out.Emit(schema, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(schema); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	})
}
