package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/errs"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect or initialize the repository's .agent/manifest.toml policy",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the parsed manifest",
	RunE:  runManifestShow,
}

var manifestValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the manifest and report errors without doing anything else",
	RunE:  runManifestValidate,
}

var manifestInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter manifest (same as `jjx init`'s manifest step)",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.AddCommand(manifestShowCmd, manifestValidateCmd, manifestInitCmd)
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	m, err := a.repo.Manifest()
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(m, func(w io.Writer) error {
		text, err := m.ToTOML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	})
}

func runManifestValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if !a.repo.HasManifest() {
		setExitCode(a.out.EmitError(errs.ManifestNotFound(a.repo.Root())))
		return nil
	}
	if _, err := a.repo.Manifest(); err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}

	setExitCode(0)
	return a.out.Emit(map[string]bool{"valid": true}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "manifest is valid")
		return err
	})
}
