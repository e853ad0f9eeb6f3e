/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

func newUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove everything the prompt library installed",
		Long: `Uninstall removes the instruction files, library folders and library
instructions from .github, takes the library's keys back out of the
.vscode config files and drops its .gitignore patterns. Settings the user
changed since install are kept.`,
		Args: cobra.NoArgs,
		RunE: runUninstall,
	}
	cmd.Flags().Bool("strict", false, "Exit non-zero when any file or config failed")
	addWorkspaceFlags(cmd)
	return cmd
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if errors.Is(err, errNoSource) {
		return nil
	}
	if err != nil {
		return err
	}
	report, err := s.installer.Uninstall(cmd.Context())
	if err != nil {
		return err
	}
	logReport("Uninstall", report)
	return strictError(cmd, report)
}
