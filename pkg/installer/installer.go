// Package installer brings a workspace in line with a prompt library
// manifest and takes it back out again.
//
// Every step is best effort: a failing file or config is recorded in the
// Report and the remaining steps still run. Nothing is persisted between
// runs; the install mode is chosen per invocation and uninstall reverses
// what either mode could have installed.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/fulmenhq/promptlib/pkg/jsonmerge"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/fulmenhq/promptlib/pkg/manifest"
	"github.com/fulmenhq/promptlib/pkg/treesync"
	"github.com/go-git/go-billy/v5"
)

// Options configures an Installer.
type Options struct {
	// Source is the asset tree holding the manifest's library and assets
	// directories.
	Source   fs.FS
	Manifest *manifest.Manifest
	// Dest is the workspace root.
	Dest billy.Filesystem
	// LibraryPath overrides Manifest.LibraryPath in rendered fragments.
	LibraryPath string
	Concurrency int
	DryRun      bool
}

// Installer applies and reverses a manifest on one workspace.
type Installer struct {
	src    fs.FS
	man    *manifest.Manifest
	dst    billy.Filesystem
	syncer *treesync.Syncer
	merger *jsonmerge.Merger
	vars   map[string]string
	dryRun bool
}

// New creates an Installer.
func New(opts Options) (*Installer, error) {
	if opts.Source == nil {
		return nil, errors.New("installer: source asset tree is required")
	}
	if opts.Manifest == nil {
		return nil, errors.New("installer: manifest is required")
	}
	if opts.Dest == nil {
		return nil, errors.New("installer: destination filesystem is required")
	}
	libPath := opts.LibraryPath
	if libPath == "" {
		libPath = opts.Manifest.LibraryPath
	}
	return &Installer{
		src: opts.Source,
		man: opts.Manifest,
		dst: opts.Dest,
		syncer: treesync.New(treesync.Options{
			Concurrency: opts.Concurrency,
			DryRun:      opts.DryRun,
		}),
		merger: &jsonmerge.Merger{DryRun: opts.DryRun},
		vars: map[string]string{
			"libraryPath": libPath,
			"package":     opts.Manifest.Package,
		},
		dryRun: opts.DryRun,
	}, nil
}

// Report aggregates the outcome of Install or Uninstall.
type Report struct {
	Mode Mode
	// Skipped is set when the source asset root was missing and nothing ran.
	Skipped   bool
	Files     *treesync.Result
	Configs   []*jsonmerge.MergeResult
	Gitignore *GitignoreResult
	// Errors holds failures outside Files, such as config merge errors.
	Errors []error
}

func newReport(mode Mode) *Report {
	return &Report{Mode: mode, Files: &treesync.Result{}}
}

// Changed reports whether the run modified (or would modify) the workspace.
func (r *Report) Changed() bool {
	if r.Files.Changed() {
		return true
	}
	for _, c := range r.Configs {
		if c.Written || c.Deleted {
			return true
		}
	}
	return r.Gitignore != nil && (r.Gitignore.Written || r.Gitignore.Deleted)
}

// AllErrors returns every recorded failure.
func (r *Report) AllErrors() []error {
	return append(slices.Clone(r.Files.Errors), r.Errors...)
}

func (r *Report) fail(err error) {
	logger.Warn(err.Error())
	r.Errors = append(r.Errors, err)
}

func (r *Report) addConfig(res *jsonmerge.MergeResult, err error) {
	if err != nil {
		r.fail(err)
		return
	}
	r.Configs = append(r.Configs, res)
}

// Install applies mode. Artifacts that only the other mode installs are
// reversed first, so switching modes leaves no residue.
func (in *Installer) Install(ctx context.Context, mode Mode) (*Report, error) {
	report := newReport(mode)
	if !in.sourcePresent() {
		logger.Warn("Source library folder not found, nothing to install",
			logger.String("source", in.man.LibraryDir))
		report.Skipped = true
		return report, nil
	}

	cur, ok := in.man.Mode(mode.String())
	if !ok {
		return nil, fmt.Errorf("manifest has no %q mode", mode)
	}
	other, _ := in.man.Mode(mode.Other().String())

	logger.Info("Installing prompt library",
		logger.String("package", in.man.Package), logger.String("mode", mode.String()))

	if other.SyncFolders && !cur.SyncFolders {
		in.cleanLibraryFolders(ctx, report)
	}
	for _, name := range other.Configs {
		if slices.Contains(cur.Configs, name) {
			continue
		}
		in.unmergeConfig(name, report)
	}

	in.copyInstructionFiles(ctx, report)

	if cur.SyncFolders {
		in.syncLibraryFolders(ctx, report)
	}

	for _, name := range cur.Configs {
		in.mergeConfig(name, report)
	}

	in.copyLibraryInstructions(ctx, cur, report)

	if len(in.man.Gitignore) > 0 {
		res, err := ensureGitignore(in.dst, in.man.Gitignore, in.dryRun)
		if err != nil {
			report.fail(err)
		}
		report.Gitignore = res
	}

	report.Files.Sort()
	return report, ctx.Err()
}

// Uninstall reverses everything either mode installs. Absent artifacts are
// not errors. The github and editor directories themselves are kept.
func (in *Installer) Uninstall(ctx context.Context) (*Report, error) {
	report := newReport("")
	logger.Info("Uninstalling prompt library", logger.String("package", in.man.Package))

	for _, f := range in.man.InstructionFiles {
		report.Files.Absorb(in.syncer.RemoveFile(ctx, in.dst, in.dst.Join(in.man.GithubDir, f)))
	}

	// Removed before the folders are cleaned so its directory can go too.
	libInstr := in.man.LibraryInstructionsPath()
	report.Files.Absorb(in.syncer.RemoveFile(ctx, in.dst, libInstr))

	if in.sourcePresent() {
		in.cleanLibraryFolders(ctx, report)
	} else {
		logger.Warn("Source library folder not found, library folders left in place",
			logger.String("source", in.man.LibraryDir))
	}
	if dir := path.Dir(libInstr); dir != "." && dir != path.Clean(in.man.GithubDir) {
		report.Files.Absorb(in.syncer.RemoveDirIfEmpty(ctx, in.dst, dir))
	}

	for _, c := range in.man.Configs {
		in.unmergeConfig(c.Name, report)
	}

	if len(in.man.Gitignore) > 0 {
		res, err := removeGitignore(in.dst, in.man.Gitignore, in.dryRun)
		if err != nil {
			report.fail(err)
		}
		report.Gitignore = res
	}

	report.Files.Sort()
	logger.Info("Uninstall cleanup completed")
	return report, ctx.Err()
}

func (in *Installer) sourcePresent() bool {
	info, err := fs.Stat(in.src, in.man.LibraryDir)
	return err == nil && info.IsDir()
}

func (in *Installer) copyInstructionFiles(ctx context.Context, report *Report) {
	for _, f := range in.man.InstructionFiles {
		src := path.Join(in.man.LibraryDir, f)
		dst := in.dst.Join(in.man.GithubDir, f)
		res, err := in.syncer.CopyFile(ctx, in.src, src, in.dst, dst)
		if err != nil {
			report.fail(fmt.Errorf("instruction file %s: %w", f, err))
			continue
		}
		report.Files.Absorb(res)
	}
	logger.Info("Instructions copied", logger.String("destination", in.man.GithubDir))
}

func (in *Installer) copyLibraryInstructions(ctx context.Context, spec manifest.ModeSpec, report *Report) {
	src := path.Join(in.man.AssetsDir, spec.InstructionsFile)
	res, err := in.syncer.CopyFile(ctx, in.src, src, in.dst, in.man.LibraryInstructionsPath())
	if err != nil {
		report.fail(fmt.Errorf("library instructions %s: %w", spec.InstructionsFile, err))
		return
	}
	report.Files.Absorb(res)
	logger.Info("Library instructions copied", logger.String("file", spec.InstructionsFile))
}

func (in *Installer) syncLibraryFolders(ctx context.Context, report *Report) {
	s := in.syncer.WithExclude(in.man.Exclude)
	for _, folder := range in.man.LibraryFolders {
		res, err := s.Sync(ctx, in.src, path.Join(in.man.LibraryDir, folder), in.dst, in.dst.Join(in.man.GithubDir, folder))
		if errors.Is(err, treesync.ErrSourceNotFound) {
			logger.Debug("Library folder not shipped, skipping", logger.String("folder", folder))
			continue
		}
		if err != nil {
			report.fail(fmt.Errorf("library folder %s: %w", folder, err))
			continue
		}
		report.Files.Absorb(res)
	}
	logger.Info("Folders copied", logger.String("destination", in.man.GithubDir))
}

func (in *Installer) cleanLibraryFolders(ctx context.Context, report *Report) {
	s := in.syncer.WithExclude(in.man.Exclude)
	for _, folder := range in.man.LibraryFolders {
		res, err := s.Clean(ctx, in.src, path.Join(in.man.LibraryDir, folder), in.dst, in.dst.Join(in.man.GithubDir, folder))
		if errors.Is(err, treesync.ErrSourceNotFound) {
			continue
		}
		if err != nil {
			report.fail(fmt.Errorf("library folder %s: %w", folder, err))
			continue
		}
		report.Files.Absorb(res)
	}
}

func (in *Installer) mergeConfig(name string, report *Report) {
	target, frag, err := in.fragment(name)
	if err != nil {
		report.fail(err)
		return
	}
	report.addConfig(in.merger.Merge(frag, in.dst, target.Target))
}

func (in *Installer) unmergeConfig(name string, report *Report) {
	target, frag, err := in.fragment(name)
	if err != nil {
		report.fail(err)
		return
	}
	report.addConfig(in.merger.Unmerge(frag, in.dst, target.Target))
}

// fragment loads and renders the named config fragment.
func (in *Installer) fragment(name string) (manifest.ConfigTarget, *jsonmerge.Fragment, error) {
	target, ok := in.man.Config(name)
	if !ok {
		return target, nil, fmt.Errorf("unknown config %q", name)
	}
	tpl, err := fs.ReadFile(in.src, path.Join(in.man.AssetsDir, target.Fragment))
	if err != nil {
		return target, nil, fmt.Errorf("config %s: failed to read fragment: %w", name, err)
	}
	frag, err := jsonmerge.RenderFragment(tpl, in.vars)
	if err != nil {
		return target, nil, fmt.Errorf("config %s: %w", name, err)
	}
	return target, frag, nil
}
