package workspace

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pkgName = "@evg/prompt_library"

func realpath(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return r
}

func TestIsDevDependency(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{name: "listed", doc: `{"devDependencies": {"@evg/prompt_library": "^1.2.0"}}`, want: true},
		{name: "runtime dependency only", doc: `{"dependencies": {"@evg/prompt_library": "^1.2.0"}}`},
		{name: "other dev deps", doc: `{"devDependencies": {"eslint": "9"}}`},
		{name: "no devDependencies", doc: `{"name": "app"}`},
		{name: "empty version still counts", doc: `{"devDependencies": {"@evg/prompt_library": ""}}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsDevDependency([]byte(tt.doc), pkgName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDevDependencyGate(t *testing.T) {
	root := t.TempDir()

	ok, reason := DevDependencyGate(root, pkgName)
	assert.False(t, ok)
	assert.Contains(t, reason, "no package.json")

	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"dependencies": {"@evg/prompt_library": "1"}}`), 0o644))
	ok, reason = DevDependencyGate(root, pkgName)
	assert.False(t, ok)
	assert.Contains(t, reason, "devDependency")

	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"devDependencies": {"@evg/prompt_library": "1"}}`), 0o644))
	ok, reason = DevDependencyGate(root, pkgName)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestResolveRootExplicit(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveRoot(dir, false)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = ResolveRoot(filepath.Join(dir, "missing"), false)
	assert.Error(t, err)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = ResolveRoot(file, false)
	assert.Error(t, err)
}

func TestResolveRootFromInitCwd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INIT_CWD", dir)
	got, err := ResolveRoot("", false)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestResolveRootLiftsToGitWorktree(t *testing.T) {
	repoDir := t.TempDir()
	_, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)
	sub := filepath.Join(repoDir, "packages", "app")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := ResolveRoot(sub, true)
	require.NoError(t, err)
	assert.Equal(t, realpath(t, repoDir), realpath(t, got))

	got, err = ResolveRoot(sub, false)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestResolveRootOutsideGitKeepsRoot(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveRoot(dir, true)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
