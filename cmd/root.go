/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/promptlib/pkg/buildinfo"
	"github.com/fulmenhq/promptlib/pkg/exitcode"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// errUsage is returned when promptlib is run without a command or with an
// unknown one.
var errUsage = errors.New("a command is required")

func printUsage(cmd *cobra.Command) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(w, "Usage: promptlib install|uninstall|postinstall|status|version")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, cmd.UsageString())
}

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptlib",
		Short: "Install a shared prompt library into a workspace",
		Long: `Promptlib copies a shared library of Copilot instructions, prompts and agents
into a project's .github directory and registers it in .vscode settings.
It only writes files whose content changed and only touches the settings
keys it owns, so it is safe to run on every npm install.

Examples:
   promptlib install                   # Reference mode: point VS Code at the package
   promptlib install --mode embedded   # Copy the library into .github
   promptlib status                    # Show what is installed
   promptlib uninstall                 # Remove everything promptlib added`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
		// Only reached when no subcommand matched.
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return nil
			}
			printUsage(cmd)
			return fmt.Errorf("%w: unknown command %q for %q", errUsage, args[0], cmd.CommandPath())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			printUsage(cmd)
			return errUsage
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs and reports in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("no-op", false, "Report what would change without writing anything")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("promptlib {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUninstallCommand())
	cmd.AddCommand(newPostinstallCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the command tree. Any error, including a missing or
// unknown command, exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			logger.Error("Command execution failed", logger.Err(err))
		}
		os.Exit(exitcode.GeneralError)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noOp, _ := cmd.Flags().GetBool("no-op")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor && stderrIsTerminal(),
		JSON:      jsonLogs,
		Component: "promptlib",
		NoOp:      noOp || dryRunFlag(cmd),
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dryRunFlag(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("dry-run"); f != nil {
		v, _ := cmd.Flags().GetBool("dry-run")
		return v
	}
	return false
}
