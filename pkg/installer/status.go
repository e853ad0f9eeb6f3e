package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/promptlib/pkg/jsonmerge"
	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/fulmenhq/promptlib/pkg/treesync"
)

// State describes how an artifact in the workspace relates to the library.
type State string

const (
	StatePresent  State = "present"
	StateModified State = "modified"
	StateMissing  State = "missing"
	StateMerged   State = "merged"
	StatePartial  State = "partial"
	StateCorrupt  State = "corrupt"
)

// Artifact is one line of a status report.
type Artifact struct {
	Kind   string
	Path   string
	State  State
	Detail string
}

// Status inspects the workspace without changing it. The returned mode is
// the one whose library-instructions file is installed, or "" when neither
// matches.
func (in *Installer) Status(ctx context.Context) (Mode, []Artifact, error) {
	if !in.sourcePresent() {
		return "", nil, fmt.Errorf("%w: %s", treesync.ErrSourceNotFound, in.man.LibraryDir)
	}
	var out []Artifact

	for _, f := range in.man.InstructionFiles {
		dst := in.dst.Join(in.man.GithubDir, f)
		out = append(out, Artifact{Kind: "instructions", Path: dst, State: in.fileState(path.Join(in.man.LibraryDir, f), dst)})
	}

	mode, modeArt := in.libraryInstructionsState()
	out = append(out, modeArt)

	for _, folder := range in.man.LibraryFolders {
		if err := ctx.Err(); err != nil {
			return mode, out, err
		}
		art, ok, err := in.folderState(folder)
		if err != nil {
			return mode, out, err
		}
		if ok {
			out = append(out, art)
		}
	}

	for _, c := range in.man.Configs {
		out = append(out, in.configState(c.Name))
	}

	if len(in.man.Gitignore) > 0 {
		content, _, err := readGitignore(in.dst)
		if err != nil {
			return mode, out, err
		}
		for _, p := range in.man.Gitignore {
			st := StateMissing
			if hasLine(content, p) {
				st = StatePresent
			}
			out = append(out, Artifact{Kind: "gitignore", Path: p, State: st})
		}
	}
	return mode, out, nil
}

func (in *Installer) fileState(src, dst string) State {
	if !safeio.Exists(in.dst, dst) {
		return StateMissing
	}
	differs, err := treesync.Differs(in.src, src, in.dst, dst)
	if err != nil || differs {
		return StateModified
	}
	return StatePresent
}

func (in *Installer) libraryInstructionsState() (Mode, Artifact) {
	dst := in.man.LibraryInstructionsPath()
	art := Artifact{Kind: "mode", Path: dst, State: StateMissing}
	if !safeio.Exists(in.dst, dst) {
		return "", art
	}
	art.State = StateModified
	for _, m := range Modes() {
		spec, ok := in.man.Mode(m.String())
		if !ok {
			continue
		}
		if in.fileState(path.Join(in.man.AssetsDir, spec.InstructionsFile), dst) == StatePresent {
			art.State = StatePresent
			art.Detail = m.String()
			return m, art
		}
	}
	return "", art
}

// folderState counts how many shipped files of folder exist unchanged in
// the workspace. Excluded entries are not shipped and not counted. ok is
// false when the folder is not shipped.
func (in *Installer) folderState(folder string) (art Artifact, ok bool, err error) {
	srcRoot := path.Join(in.man.LibraryDir, folder)
	dstRoot := in.dst.Join(in.man.GithubDir, folder)
	if _, statErr := fs.Stat(in.src, srcRoot); statErr != nil {
		return art, false, nil
	}

	total, present := 0, 0
	walkErr := fs.WalkDir(in.src, srcRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == srcRoot {
			return nil
		}
		rel := p[len(srcRoot)+1:]
		if in.excluded(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		total++
		if in.fileState(p, in.dst.Join(dstRoot, rel)) == StatePresent {
			present++
		}
		return nil
	})
	if walkErr != nil {
		return art, false, fmt.Errorf("failed to inspect %s: %w", folder, walkErr)
	}

	art = Artifact{Kind: "library", Path: dstRoot, Detail: fmt.Sprintf("%d/%d files", present, total)}
	switch {
	case present == 0:
		art.State = StateMissing
	case present == total:
		art.State = StatePresent
	default:
		art.State = StatePartial
	}
	return art, true, nil
}

func (in *Installer) configState(name string) Artifact {
	target, frag, err := in.fragment(name)
	art := Artifact{Kind: "config", Path: target.Target}
	if err != nil {
		art.State = StateCorrupt
		art.Detail = err.Error()
		return art
	}
	doc, exists, err := jsonmerge.ReadDocument(in.dst, target.Target)
	if err != nil {
		art.State = StateCorrupt
		art.Detail = err.Error()
		return art
	}
	matched, total := frag.Coverage(doc)
	art.Detail = fmt.Sprintf("%d/%d keys", matched, total)
	switch {
	case !exists || matched == 0:
		art.State = StateMissing
	case matched == total:
		art.State = StateMerged
	default:
		art.State = StatePartial
	}
	return art
}

func (in *Installer) excluded(rel string) bool {
	for _, p := range in.man.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// IsSourceMissing reports whether err means the asset tree was not found.
func IsSourceMissing(err error) bool {
	return errors.Is(err, treesync.ErrSourceNotFound)
}
