package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/manifest"
	"github.com/agentjj/jjx/internal/output"
	"github.com/agentjj/jjx/internal/vcsdriver/jj"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a jjx-managed repository in the current directory",
	Long: `init bootstraps colocated jj state over the current Git repository (if
none exists yet) and writes a starter .agent/manifest.toml policy file, along
with .agent/.gitignore so local transaction state never gets committed.

Safe to run more than once: an existing manifest is left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

type initOutput struct {
	Root           string `json:"root"`
	ManifestPath   string `json:"manifest_path"`
	ManifestExists bool   `json:"manifest_existed"`
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if repoDir != "" {
		cwd = repoDir
	}

	driver := jj.Open(cwd)
	root, err := driver.Discover(cwd)
	if err != nil {
		return err
	}

	out := output.New(outputFormat(), os.Stdout, os.Stderr)

	result := initOutput{Root: root, ManifestPath: manifest.DefaultPath}

	manifestPath := filepath.Join(root, manifest.DefaultPath)
	if _, err := os.Stat(manifestPath); err == nil {
		result.ManifestExists = true
	} else {
		if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
			return err
		}
		m, err := manifest.Parse(starterManifestTOML(filepath.Base(root)))
		if err != nil {
			return err
		}
		text, err := m.ToTOML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(manifestPath, []byte(text), 0o644); err != nil {
			return err
		}
	}

	if err := ensureAgentGitignore(root); err != nil {
		return err
	}

	return out.Emit(result, func(w io.Writer) error {
		fmt.Fprintf(w, "initialized jjx in %s\n", root)
		if result.ManifestExists {
			fmt.Fprintln(w, "manifest already present, left unchanged")
		} else {
			fmt.Fprintf(w, "wrote %s\n", manifest.DefaultPath)
		}
		return nil
	})
}

func starterManifestTOML(name string) string {
	return fmt.Sprintf(`[repo]
name = %q
description = ""
languages = []
vcs = "jj"

[entry_points]

[interfaces]

[invariants]

[permissions]
allow_change = []
deny_change = []
allow_push = []
deny_push = []

[branches]
trunk = "main"
protected = []

[review]
require_human = []
`, name)
}

// ensureAgentGitignore writes .agent/.gitignore excluding the engine's local
// state subtrees, creating it only if absent.
func ensureAgentGitignore(root string) error {
	path := filepath.Join(root, ".agent", ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	content := "checkpoints/\nchanges/\ntemp.patch\n"
	return os.WriteFile(path, []byte(content), 0o644)
}
