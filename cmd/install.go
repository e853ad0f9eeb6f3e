/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"

	"github.com/fulmenhq/promptlib/pkg/installer"
	"github.com/spf13/cobra"
)

func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the prompt library into the workspace",
		Long: `Install copies the library instruction files into .github and applies the
selected mode:

  reference  Leave the library in node_modules and point VS Code at it
             through .vscode/settings.json.
  embedded   Copy the library folders into .github.

Switching modes removes whatever the previous mode installed. Files and
settings keys that already match are left untouched.`,
		Args: cobra.NoArgs,
		RunE: runInstall,
	}
	cmd.Flags().String("mode", "reference", "Install mode (reference|embedded)")
	cmd.Flags().Bool("strict", false, "Exit non-zero when any file or config failed")
	addWorkspaceFlags(cmd)
	return cmd
}

func runInstall(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if errors.Is(err, errNoSource) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.install(cmd)
}

func (s *session) install(cmd *cobra.Command) error {
	mode := installer.ParseMode(s.cfg.Mode)
	report, err := s.installer.Install(cmd.Context(), mode)
	if err != nil {
		return err
	}
	logReport("Install", report)
	return strictError(cmd, report)
}
