package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `package: "@evg/prompt_library"
instruction_files: [copilot-instructions.md]
library_folders: [prompts, scripts]
exclude: ["**/*.tmp"]
configs:
  - name: settings
    fragment: settings.json
    target: .vscode/settings.json
modes:
  reference:
    configs: [settings]
    instructions_file: ref.md
  embedded:
    sync_folders: true
    instructions_file: embed.md
gitignore:
  - .github/agents/lib.*.agent.md
`

const tomlManifest = `package = "@evg/prompt_library"
library_folders = ["prompts"]

[[configs]]
name = "mcp"
fragment = "mcp.json"
target = ".vscode/mcp.json"

[modes.reference]
configs = ["mcp"]
instructions_file = "ref.md"

[modes.embedded]
sync_folders = true
instructions_file = "embed.md"
`

const jsonManifest = `{
  "package": "@evg/prompt_library",
  "library_dir": "lib",
  "modes": {
    "reference": {"instructions_file": "ref.md"},
    "embedded": {"sync_folders": true, "instructions_file": "embed.md"}
  }
}`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{name: "yaml", data: yamlManifest, ext: ".yaml"},
		{name: "yml", data: yamlManifest, ext: ".yml"},
		{name: "toml", data: tomlManifest, ext: ".toml"},
		{name: "json", data: jsonManifest, ext: ".json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data), tt.ext)
			require.NoError(t, err)
			assert.Equal(t, "@evg/prompt_library", m.Package)

			ref, ok := m.Mode("reference")
			require.True(t, ok)
			assert.Equal(t, "ref.md", ref.InstructionsFile)
			assert.False(t, ref.SyncFolders)

			emb, ok := m.Mode("embedded")
			require.True(t, ok)
			assert.True(t, emb.SyncFolders)
		})
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultLibraryDir, m.LibraryDir)
	assert.Equal(t, DefaultAssetsDir, m.AssetsDir)
	assert.Equal(t, DefaultGithubDir, m.GithubDir)
	assert.Equal(t, "node_modules/@evg/prompt_library/library", m.LibraryPath)
	assert.Equal(t, ".github/instructions/cmn.library.instructions.md", m.LibraryInstructionsPath())

	m, err = Parse([]byte(jsonManifest), ".json")
	require.NoError(t, err)
	assert.Equal(t, "node_modules/@evg/prompt_library/lib", m.LibraryPath)
}

func TestConfigLookup(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), ".yaml")
	require.NoError(t, err)

	c, ok := m.Config("settings")
	require.True(t, ok)
	assert.Equal(t, ".vscode/settings.json", c.Target)

	_, ok = m.Config("mcp")
	assert.False(t, ok)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{name: "missing package", data: `{"modes": {"reference": {"instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "missing mode", data: `{"package": "p", "modes": {"reference": {"instructions_file": "a"}}}`, ext: ".json"},
		{name: "unknown field", data: `{"package": "p", "bogus": 1, "modes": {"reference": {"instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "traversal", data: `{"package": "p", "library_folders": ["../etc"], "modes": {"reference": {"instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "absolute target", data: `{"package": "p", "configs": [{"name": "s", "fragment": "s.json", "target": "/etc/s.json"}], "modes": {"reference": {"instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "unknown config ref", data: `{"package": "p", "modes": {"reference": {"configs": ["nope"], "instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "bad glob", data: `{"package": "p", "exclude": ["[abc"], "modes": {"reference": {"instructions_file": "a"}, "embedded": {"instructions_file": "b"}}}`, ext: ".json"},
		{name: "broken yaml", data: "package: [", ext: ".yaml"},
		{name: "empty", data: "", ext: ".yaml"},
		{name: "unsupported extension", data: "package = 1", ext: ".ini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "promptlib.toml")
	require.NoError(t, os.WriteFile(file, []byte(tomlManifest), 0o644))

	m, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"prompts"}, m.LibraryFolders)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{DefaultName: {Data: []byte(yamlManifest)}}
	m, err := LoadFS(fsys, DefaultName)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/*.tmp"}, m.Exclude)
	assert.Equal(t, []string{".github/agents/lib.*.agent.md"}, m.Gitignore)
}
