/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/promptlib/pkg/installer"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the prompt library has installed",
		Long: `Status compares the workspace with the library without changing anything.
It reports the detected install mode, each instruction file, each library
folder, each config fragment and each .gitignore pattern.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	addWorkspaceFlags(cmd)
	return cmd
}

type statusEntry struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

type statusReport struct {
	Root      string        `json:"root"`
	Package   string        `json:"package"`
	Mode      string        `json:"mode,omitempty"`
	Artifacts []statusEntry `json:"artifacts"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if errors.Is(err, errNoSource) {
		return nil
	}
	if err != nil {
		return err
	}
	mode, arts, err := s.installer.Status(cmd.Context())
	if installer.IsSourceMissing(err) {
		logger.Warn("Source library folder not found, nothing to report", logger.Err(err))
		return nil
	}
	if err != nil {
		return err
	}

	report := statusReport{Root: s.root, Package: s.manifest.Package, Mode: mode.String()}
	for _, a := range arts {
		report.Artifacts = append(report.Artifacts, statusEntry{
			Kind: a.Kind, Path: a.Path, State: string(a.State), Detail: a.Detail,
		})
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return writeStatusTable(cmd.OutOrStdout(), report)
}

func writeStatusTable(out io.Writer, r statusReport) error {
	mode := "none detected"
	if r.Mode != "" {
		mode = cases.Title(language.English).String(r.Mode)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Package: %s\n", r.Package)
	fmt.Fprintf(&b, "Root:    %s\n", r.Root)
	fmt.Fprintf(&b, "Mode:    %s\n\n", mode)

	rows := [][]string{{"KIND", "PATH", "STATE", "DETAIL"}}
	for _, a := range r.Artifacts {
		rows = append(rows, []string{a.Kind, a.Path, a.State, a.Detail})
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(out, b.String())
	return err
}
