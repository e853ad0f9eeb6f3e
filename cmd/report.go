/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"

	"github.com/fulmenhq/promptlib/pkg/installer"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/spf13/cobra"
)

func logReport(action string, r *installer.Report) {
	if r.Skipped {
		return
	}
	configs := 0
	for _, c := range r.Configs {
		if c.Written || c.Deleted {
			configs++
		}
	}
	fields := []logger.Field{
		logger.Int("written", len(r.Files.Written)),
		logger.Int("unchanged", r.Files.Unchanged),
		logger.Int("removed", len(r.Files.Removed)),
		logger.Int("configs", configs),
	}
	errs := r.AllErrors()
	if len(errs) > 0 {
		fields = append(fields, logger.Int("errors", len(errs)))
		logger.Warn(action+" finished with errors", fields...)
		return
	}
	if !r.Changed() {
		logger.Info(action+" complete, workspace already up to date", fields...)
		return
	}
	logger.Info(action+" complete", fields...)
}

// strictError turns recorded per-item failures into a command error when
// --strict is set.
func strictError(cmd *cobra.Command, r *installer.Report) error {
	strict, _ := cmd.Flags().GetBool("strict")
	if !strict {
		return nil
	}
	if n := len(r.AllErrors()); n > 0 {
		return fmt.Errorf("%d item(s) failed", n)
	}
	return nil
}
