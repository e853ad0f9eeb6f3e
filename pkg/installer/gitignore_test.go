package installer

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patterns = []string{".github/agents/lib.*.agent.md"}

func TestEnsureGitignoreCreatesFile(t *testing.T) {
	fs := memfs.New()
	res, err := ensureGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, patterns, res.Added)
	assert.Equal(t, ".github/agents/lib.*.agent.md\n", readFile(t, fs, ".gitignore"))
}

func TestEnsureGitignoreAppends(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte("node_modules/\ndist"), 0o644))

	_, err := ensureGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.Equal(t, "node_modules/\ndist\n.github/agents/lib.*.agent.md\n", readFile(t, fs, ".gitignore"))

	res, err := ensureGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.False(t, res.Written, "pattern already present")
}

func TestEnsureGitignoreMatchesTrimmedLines(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte("  .github/agents/lib.*.agent.md  \n"), 0o644))

	res, err := ensureGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
}

func TestRemoveGitignore(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte("node_modules/\n.github/agents/lib.*.agent.md\n"), 0o644))

	res, err := removeGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, "node_modules/\n", readFile(t, fs, ".gitignore"))
}

func TestRemoveGitignoreDeletesEmptyFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte(".github/agents/lib.*.agent.md\n"), 0o644))

	res, err := removeGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.False(t, exists(fs, ".gitignore"))
}

func TestRemoveGitignoreNoop(t *testing.T) {
	fs := memfs.New()
	res, err := removeGitignore(fs, patterns, false)
	require.NoError(t, err)
	assert.False(t, res.Written)

	require.NoError(t, util.WriteFile(fs, ".gitignore", []byte("node_modules/\n"), 0o644))
	res, err = removeGitignore(fs, patterns, true)
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Equal(t, "node_modules/\n", readFile(t, fs, ".gitignore"))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{in: "embedded", want: ModeEmbedded},
		{in: " Embedded ", want: ModeEmbedded},
		{in: "reference", want: ModeReference},
		{in: "", want: ModeReference},
		{in: "vendored", want: ModeReference},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMode(tt.in), "input %q", tt.in)
	}
	assert.Equal(t, ModeReference, ModeEmbedded.Other())
	assert.Equal(t, ModeEmbedded, ModeReference.Other())
}
