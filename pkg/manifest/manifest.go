// Package manifest describes what a prompt library package installs: the
// instruction files, the library folders, the config fragments and the
// per-mode choices between them.
//
// Manifests may be written in YAML, TOML or JSON. Every manifest is
// validated against an embedded JSON Schema before use.
package manifest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed manifest.schema.json
var schemaJSON []byte

// ErrInvalid wraps every manifest validation failure.
var ErrInvalid = errors.New("invalid manifest")

// DefaultName is the manifest file looked up at the root of an asset tree.
const DefaultName = "manifest.yaml"

// Defaults applied when a manifest leaves a field empty.
const (
	DefaultLibraryDir = "library"
	DefaultAssetsDir  = "assets"
	DefaultGithubDir  = ".github"
)

// Manifest is the decoded asset manifest.
type Manifest struct {
	Package string `json:"package"`
	// LibraryPath is where the library lives relative to the workspace in
	// reference mode. Fragment templates receive it as {{{libraryPath}}}.
	LibraryPath string `json:"library_path,omitempty"`
	// LibraryDir and AssetsDir are directories of the asset tree.
	LibraryDir string `json:"library_dir,omitempty"`
	AssetsDir  string `json:"assets_dir,omitempty"`
	// GithubDir is the workspace directory receiving instruction files and
	// library folders.
	GithubDir string `json:"github_dir,omitempty"`

	InstructionFiles []string `json:"instruction_files,omitempty"`
	LibraryFolders   []string `json:"library_folders,omitempty"`
	Exclude          []string `json:"exclude,omitempty"`

	// LibraryInstructions is the workspace path of the per-mode
	// library-instructions file.
	LibraryInstructions string `json:"library_instructions,omitempty"`

	Configs   []ConfigTarget      `json:"configs,omitempty"`
	Modes     map[string]ModeSpec `json:"modes"`
	Gitignore []string            `json:"gitignore,omitempty"`
}

// ConfigTarget pairs a fragment asset with the workspace file it merges into.
type ConfigTarget struct {
	Name     string `json:"name"`
	Fragment string `json:"fragment"`
	Target   string `json:"target"`
}

// ModeSpec lists what one install mode applies.
type ModeSpec struct {
	SyncFolders      bool     `json:"sync_folders,omitempty"`
	Configs          []string `json:"configs,omitempty"`
	InstructionsFile string   `json:"instructions_file"`
}

// Mode returns the settings of the named mode.
func (m *Manifest) Mode(name string) (ModeSpec, bool) {
	spec, ok := m.Modes[name]
	return spec, ok
}

// Config returns the config target with the given name.
func (m *Manifest) Config(name string) (ConfigTarget, bool) {
	for _, c := range m.Configs {
		if c.Name == name {
			return c, true
		}
	}
	return ConfigTarget{}, false
}

// LibraryInstructionsPath returns the workspace path of the library-instructions file.
func (m *Manifest) LibraryInstructionsPath() string {
	if m.LibraryInstructions != "" {
		return m.LibraryInstructions
	}
	return path.Join(m.GithubDir, "instructions", "cmn.library.instructions.md")
}

// Load reads and validates a manifest from an on-disk path. The format is
// chosen by extension.
func Load(file string) (*Manifest, error) {
	data, err := os.ReadFile(file) // #nosec G304 -- path comes from the command line or config
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", file, err)
	}
	return Parse(data, filepath.Ext(file))
}

// LoadFS reads and validates the manifest name from fsys.
func LoadFS(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	return Parse(data, path.Ext(name))
}

// Parse decodes data in the format named by ext (".yaml", ".yml", ".toml"
// or ".json"), validates it and applies defaults.
func Parse(data []byte, ext string) (*Manifest, error) {
	generic, err := decode(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	// Round-trip through JSON so all three formats share one schema and
	// one set of struct tags.
	doc, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func decode(data []byte, ext string) (any, error) {
	var generic map[string]any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", ext)
	}
	if generic == nil {
		return nil, errors.New("manifest is empty")
	}
	return generic, nil
}

func validateSchema(doc []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: schema validation error: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(problems, "\n"))
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.LibraryDir == "" {
		m.LibraryDir = DefaultLibraryDir
	}
	if m.AssetsDir == "" {
		m.AssetsDir = DefaultAssetsDir
	}
	if m.GithubDir == "" {
		m.GithubDir = DefaultGithubDir
	}
	if m.LibraryPath == "" {
		m.LibraryPath = path.Join("node_modules", m.Package, m.LibraryDir)
	}
}

// Validate checks the rules the schema cannot express: every path stays
// inside its root, exclude globs compile and modes name known configs.
func (m *Manifest) Validate() error {
	var problems []string
	checkPath := func(field, p string) {
		if _, err := safeio.CleanRelPath(p); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %q: %v", field, p, err))
		}
	}

	checkPath("library_dir", m.LibraryDir)
	checkPath("assets_dir", m.AssetsDir)
	checkPath("github_dir", m.GithubDir)
	checkPath("library_instructions", m.LibraryInstructionsPath())
	for _, f := range m.InstructionFiles {
		checkPath("instruction_files", f)
	}
	for _, f := range m.LibraryFolders {
		checkPath("library_folders", f)
	}
	for _, p := range m.Exclude {
		if !doublestar.ValidatePattern(p) {
			problems = append(problems, fmt.Sprintf("exclude: bad pattern %q", p))
		}
	}

	seen := make(map[string]bool, len(m.Configs))
	for _, c := range m.Configs {
		if seen[c.Name] {
			problems = append(problems, fmt.Sprintf("configs: duplicate name %q", c.Name))
		}
		seen[c.Name] = true
		checkPath("configs."+c.Name+".fragment", c.Fragment)
		checkPath("configs."+c.Name+".target", c.Target)
	}
	for _, name := range slices.Sorted(maps.Keys(m.Modes)) {
		mode := m.Modes[name]
		checkPath("modes."+name+".instructions_file", mode.InstructionsFile)
		for _, ref := range mode.Configs {
			if !seen[ref] {
				problems = append(problems, fmt.Sprintf("modes.%s.configs: unknown config %q", name, ref))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(problems, "\n"))
	}
	return nil
}
