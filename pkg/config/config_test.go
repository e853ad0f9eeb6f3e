package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's environment and config files out of a test.
func isolate(t *testing.T) LoadOptions {
	t.Helper()
	t.Setenv("INIT_CWD", "")
	for _, key := range Keys {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	return LoadOptions{WorkDir: t.TempDir(), UserDir: t.TempDir()}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(isolate(t))
	require.NoError(t, err)
	assert.Equal(t, "reference", cfg.Mode)
	assert.Equal(t, 0, cfg.Concurrency)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.GitRoot)
	assert.Empty(t, cfg.Root)
	assert.Empty(t, cfg.Files)
}

func TestLoadEnvironment(t *testing.T) {
	opts := isolate(t)
	t.Setenv("PROMPTLIB_MODE", "embedded")
	t.Setenv("PROMPTLIB_CONCURRENCY", "3")
	t.Setenv("PROMPTLIB_DRY_RUN", "true")
	t.Setenv("INIT_CWD", "/work/app")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Mode)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "/work/app", cfg.Root)
}

func TestLoadRootEnvBeatsInitCwd(t *testing.T) {
	opts := isolate(t)
	t.Setenv("INIT_CWD", "/from/npm")
	t.Setenv("PROMPTLIB_ROOT", "/explicit")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "/explicit", cfg.Root)
}

func TestLoadFilesAndPrecedence(t *testing.T) {
	opts := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.UserDir, "config.toml"),
		[]byte("mode = \"embedded\"\nconcurrency = 2\ngit_root = true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(opts.WorkDir, ".promptlib.yaml"),
		[]byte("concurrency: 8\nlibrary_path: vendor/prompts\n"), 0o644))

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Mode, "user file applies when the project file is silent")
	assert.Equal(t, 8, cfg.Concurrency, "project file beats user file")
	assert.True(t, cfg.GitRoot)
	assert.Equal(t, "vendor/prompts", cfg.LibraryPath)
	assert.Len(t, cfg.Files, 2)

	t.Setenv("PROMPTLIB_CONCURRENCY", "16")
	cfg, err = Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Concurrency, "environment beats files")
}

func TestLoadFlagsWin(t *testing.T) {
	opts := isolate(t)
	t.Setenv("PROMPTLIB_MODE", "embedded")

	flags := pflag.NewFlagSet("install", pflag.ContinueOnError)
	flags.String("mode", "reference", "")
	flags.Bool("dry-run", false, "")
	flags.String("root", "", "")
	require.NoError(t, flags.Parse([]string{"--mode", "reference", "--dry-run"}))
	opts.Flags = flags

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "reference", cfg.Mode)
	assert.True(t, cfg.DryRun)
	assert.Empty(t, cfg.Root, "unset flags do not mask other sources")
}

func TestLoadRejectsNegativeConcurrency(t *testing.T) {
	opts := isolate(t)
	t.Setenv("PROMPTLIB_CONCURRENCY", "-1")
	_, err := Load(opts)
	assert.Error(t, err)
}

func TestLoadBrokenProjectFile(t *testing.T) {
	opts := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.WorkDir, ".promptlib.json"), []byte("{"), 0o644))
	_, err := Load(opts)
	assert.Error(t, err)
}

func TestDefaultWorkDir(t *testing.T) {
	t.Setenv("INIT_CWD", "/npm/started/here")
	assert.Equal(t, "/npm/started/here", DefaultWorkDir())

	t.Setenv("INIT_CWD", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, DefaultWorkDir())
}

func TestUserConfigDir(t *testing.T) {
	assert.Equal(t, "promptlib", filepath.Base(UserConfigDir()))
}
