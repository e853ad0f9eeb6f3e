/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"

	"github.com/fulmenhq/promptlib/internal/workspace"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/spf13/cobra"
)

func newPostinstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postinstall",
		Short: "Install from an npm postinstall hook",
		Long: `Postinstall runs install only when the workspace's package.json lists the
library package under devDependencies. Anything else, including a missing
package.json, is logged and exits successfully so the npm install that
triggered the hook never fails because of it.`,
		Args: cobra.NoArgs,
		RunE: runPostinstall,
	}
	cmd.Flags().String("mode", "reference", "Install mode (reference|embedded)")
	cmd.Flags().Bool("strict", false, "Exit non-zero when any file or config failed")
	addWorkspaceFlags(cmd)
	return cmd
}

func runPostinstall(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if errors.Is(err, errNoSource) {
		return nil
	}
	if err != nil {
		return err
	}
	if ok, reason := workspace.DevDependencyGate(s.root, s.manifest.Package); !ok {
		logger.Info("Skipping postinstall", logger.String("reason", reason))
		return nil
	}
	return s.install(cmd)
}
