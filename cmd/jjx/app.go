package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/changestore"
	"github.com/agentjj/jjx/internal/checkpoint"
	"github.com/agentjj/jjx/internal/config"
	"github.com/agentjj/jjx/internal/extproc"
	"github.com/agentjj/jjx/internal/intent"
	"github.com/agentjj/jjx/internal/output"
	"github.com/agentjj/jjx/internal/repo"
	"github.com/agentjj/jjx/internal/vcsdriver/jj"
)

// app bundles the handles every command needs: the repository, the
// transaction engine, the user config, and the output writer.
type app struct {
	repo    *repo.Repo
	engine  *intent.Engine
	changes *changestore.Store
	checks  *checkpoint.Store
	git     *extproc.Git
	gh      *extproc.GH
	cfg     *config.Config
	out     *output.Writer
	logger  *slog.Logger
	ctx     context.Context
}

// newApp discovers the repository rooted at or above the current (or
// --repo-flagged) directory, loads config, and wires an intent engine on
// top of it. Commands that don't need a repository (schema, skill, version)
// skip this and build their own output writer; init runs its own discovery.
func newApp(cmd *cobra.Command) (*app, error) {
	startDir := repoDir
	if startDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		startDir = cwd
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	driver := jj.Open(startDir)
	root, err := driver.Discover(startDir)
	if err != nil {
		return nil, err
	}
	driver = jj.Open(root)

	cfg, err := config.Load(root, configOverrides())
	if err != nil {
		return nil, err
	}

	r := repo.Open(root, driver, logger)
	eng := intent.New(r, logger)

	format := output.FormatTable
	if jsonOutput || cfg.Output == "json" {
		format = output.FormatJSON
	}

	return &app{
		repo:    r,
		engine:  eng,
		changes: changestore.Open(root),
		checks:  checkpoint.Open(root),
		git:     extproc.NewGit(logger),
		gh:      extproc.NewGH(logger),
		cfg:     cfg,
		out:     output.New(format, os.Stdout, os.Stderr),
		logger:  logger,
		ctx:     cmd.Context(),
	}, nil
}

// configOverrides builds the flag-sourced config.Config overlay, honoring
// --json as an override of the default output format.
func configOverrides() *config.Config {
	if !jsonOutput {
		return nil
	}
	return &config.Config{Output: "json"}
}

// outputFormat resolves the active output.Format without requiring a full
// app (used by commands that bypass repository discovery).
func outputFormat() output.Format {
	if jsonOutput {
		return output.FormatJSON
	}
	return output.FormatTable
}
