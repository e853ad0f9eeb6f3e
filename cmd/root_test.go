package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/fulmenhq/promptlib/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRoot runs a fresh command tree with args and captures stdout and
// stderr separately. Config lookups are isolated from the host.
func execRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	isolateConfig(t)

	root := newRootCommand()
	registerSubcommands(root)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	// Reduce log noise to capture clean command output for JSON parsing
	root.SetArgs(append([]string{"--log-level", "error", "--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func isolateConfig(t *testing.T) {
	t.Helper()
	// Registered first so it runs after the environment is restored.
	t.Cleanup(xdg.Reload)
	t.Setenv("INIT_CWD", "")
	for _, key := range config.Keys {
		t.Setenv(config.EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
}

func newLoggerTestCommand(level string, jsonLogs, noColor, noOp bool) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", level, "")
	cmd.Flags().Bool("json", jsonLogs, "")
	cmd.Flags().Bool("no-color", noColor, "")
	cmd.Flags().Bool("no-op", noOp, "")
	return cmd
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		jsonLogs bool
		noColor  bool
		noOp     bool
	}{
		{name: "defaults", level: "info"},
		{name: "debug level", level: "debug"},
		{name: "invalid level falls back", level: "invalid"},
		{name: "json output", level: "info", jsonLogs: true},
		{name: "no color", level: "info", noColor: true},
		{name: "no-op", level: "info", noOp: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// This should not panic
			initializeLogger(newLoggerTestCommand(tt.level, tt.jsonLogs, tt.noColor, tt.noOp))
		})
	}
}

func TestRootVersionIsSet(t *testing.T) {
	assert.NotEmpty(t, rootCmd.Version)
}

func TestRootWithoutCommandIsUsageError(t *testing.T) {
	_, errOut, err := execRoot(t)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, errOut, "Usage: promptlib install|uninstall")
	assert.Contains(t, errOut, "Available Commands:")
}

func TestRootUnknownCommand(t *testing.T) {
	_, errOut, err := execRoot(t, "bogus")
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), `unknown command "bogus"`)
	assert.Contains(t, errOut, "Usage: promptlib install|uninstall")
	assert.Contains(t, errOut, "Available Commands:")
}

func TestRegisterSubcommands(t *testing.T) {
	root := newRootCommand()
	registerSubcommands(root)

	for _, name := range []string{"install", "uninstall", "postinstall", "status", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}
