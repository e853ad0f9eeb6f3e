/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fulmenhq/promptlib/internal/assets"
	"github.com/fulmenhq/promptlib/internal/workspace"
	"github.com/fulmenhq/promptlib/pkg/config"
	"github.com/fulmenhq/promptlib/pkg/installer"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/fulmenhq/promptlib/pkg/manifest"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

// errNoSource means the asset tree is missing and there is no manifest to
// fall back on. Commands treat it as a successful no-op.
var errNoSource = errors.New("source asset tree not found")

// session is everything a workspace command needs, resolved once from
// flags, environment and config files.
type session struct {
	cfg       *config.Config
	root      string
	manifest  *manifest.Manifest
	installer *installer.Installer
}

// addWorkspaceFlags registers the flags shared by commands that touch a workspace.
func addWorkspaceFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Workspace root (default: $INIT_CWD or the current directory)")
	cmd.Flags().Bool("git-root", false, "Use the enclosing git worktree as the workspace root")
	cmd.Flags().String("source", "", "Asset tree directory (default: the library built into promptlib)")
	cmd.Flags().String("manifest", "", "Manifest file (default: manifest.yaml in the asset tree)")
	cmd.Flags().String("library-path", "", "Library location written into editor settings")
	cmd.Flags().Int("concurrency", 0, "Maximum parallel file operations (0 = one per CPU)")
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing anything")
}

func newSession(cmd *cobra.Command) (*session, error) {
	rootFlag, _ := cmd.Flags().GetString("root")
	cfg, err := config.Load(config.LoadOptions{Flags: cmd.Flags(), WorkDir: rootFlag})
	if err != nil {
		return nil, err
	}
	for _, f := range cfg.Files {
		logger.Debug("Loaded config file", logger.String("file", f))
	}

	root, err := workspace.ResolveRoot(cfg.Root, cfg.GitRoot)
	if err != nil {
		return nil, err
	}

	src, present, err := sourceFS(cfg.Source)
	if err != nil {
		return nil, err
	}
	if !present && cfg.Manifest == "" {
		logger.Warn("Source asset tree not found, nothing to do", logger.String("source", cfg.Source))
		return nil, errNoSource
	}

	var man *manifest.Manifest
	if cfg.Manifest != "" {
		man, err = manifest.Load(cfg.Manifest)
	} else {
		man, err = manifest.LoadFS(src, manifest.DefaultName)
	}
	if err != nil {
		return nil, err
	}

	noOp, _ := cmd.Flags().GetBool("no-op")
	inst, err := installer.New(installer.Options{
		Source:      src,
		Manifest:    man,
		Dest:        osfs.New(root),
		LibraryPath: cfg.LibraryPath,
		Concurrency: cfg.Concurrency,
		DryRun:      cfg.DryRun || noOp,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Workspace resolved",
		logger.String("root", root), logger.String("package", man.Package))
	return &session{cfg: cfg, root: root, manifest: man, installer: inst}, nil
}

// sourceFS opens the asset tree. An empty dir selects the built-in library.
func sourceFS(dir string) (fsys fs.FS, present bool, err error) {
	if dir == "" {
		return assets.LibraryFS(), true, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve source %s: %w", dir, err)
	}
	st, statErr := os.Stat(abs)
	return os.DirFS(abs), statErr == nil && st.IsDir(), nil
}
