package assets

import (
	"io/fs"
	"testing"

	"github.com/fulmenhq/promptlib/pkg/jsonmerge"
	"github.com/fulmenhq/promptlib/pkg/manifest"
)

func TestLibraryFSHoldsManifest(t *testing.T) {
	m, err := manifest.LoadFS(LibraryFS(), manifest.DefaultName)
	if err != nil {
		t.Fatalf("packaged manifest should load: %v", err)
	}
	if m.Package != "@evg/prompt_library" {
		t.Errorf("unexpected package name %q", m.Package)
	}

	for _, f := range m.InstructionFiles {
		if _, err := fs.Stat(LibraryFS(), m.LibraryDir+"/"+f); err != nil {
			t.Errorf("instruction file %s missing: %v", f, err)
		}
	}
	for _, dir := range m.LibraryFolders {
		info, err := fs.Stat(LibraryFS(), m.LibraryDir+"/"+dir)
		if err != nil || !info.IsDir() {
			t.Errorf("library folder %s missing", dir)
		}
	}
	for name, mode := range m.Modes {
		if _, err := fs.Stat(LibraryFS(), m.AssetsDir+"/"+mode.InstructionsFile); err != nil {
			t.Errorf("mode %s instructions file missing: %v", name, err)
		}
	}
}

func TestPackagedFragmentsRender(t *testing.T) {
	m, err := manifest.LoadFS(LibraryFS(), manifest.DefaultName)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	vars := map[string]string{"libraryPath": m.LibraryPath, "package": m.Package}
	for _, c := range m.Configs {
		tpl, err := fs.ReadFile(LibraryFS(), m.AssetsDir+"/"+c.Fragment)
		if err != nil {
			t.Fatalf("fragment %s: %v", c.Name, err)
		}
		frag, err := jsonmerge.RenderFragment(tpl, vars)
		if err != nil {
			t.Fatalf("fragment %s should render: %v", c.Name, err)
		}
		if frag.Size() == 0 {
			t.Errorf("fragment %s is empty", c.Name)
		}
	}
}
