package treesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"
)

// Sync mirrors srcDir of src into dstDir of dst. Files are written only
// when their bytes differ; destination-only entries are left untouched.
// ErrSourceNotFound is returned when srcDir does not exist. All other
// failures are per-entry and recorded in the Result.
func (s *Syncer) Sync(ctx context.Context, src fs.FS, srcDir string, dst billy.Filesystem, dstDir string) (*Result, error) {
	if err := checkSourceDir(src, srcDir); err != nil {
		return nil, err
	}
	res := &Result{}
	s.syncDir(ctx, src, srcDir, dst, dstDir, "", res)
	res.Sort()
	logger.Debug("Tree synced",
		logger.String("source", srcDir),
		logger.String("destination", dstDir),
		logger.Int("written", len(res.Written)),
		logger.Int("unchanged", res.Unchanged),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}

// CopyFile writes a single source file to dstPath if its content differs,
// creating the parent directory as needed.
func (s *Syncer) CopyFile(ctx context.Context, src fs.FS, srcPath string, dst billy.Filesystem, dstPath string) (*Result, error) {
	info, err := fs.Stat(src, srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, srcPath)
		}
		return nil, fmt.Errorf("failed to stat source %s: %w", srcPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", srcPath)
	}

	res := &Result{}
	if dir := filepath.Dir(dstPath); dir != "." && !s.opts.DryRun {
		if err := s.withSlot(ctx, func() error { return s.ensureDir(dst, dir, res) }); err != nil {
			res.fail(err)
			return res, nil
		}
	}
	s.syncFile(ctx, src, srcPath, dst, dstPath, res)
	return res, nil
}

// syncDir must create dstDir before dispatching any child into it.
func (s *Syncer) syncDir(ctx context.Context, src fs.FS, srcDir string, dst billy.Filesystem, dstDir, rel string, res *Result) {
	var entries []fs.DirEntry
	err := s.withSlot(ctx, func() error {
		if !s.opts.DryRun {
			if err := s.ensureDir(dst, dstDir, res); err != nil {
				return err
			}
		}
		var err error
		entries, err = fs.ReadDir(src, srcDir)
		if err != nil {
			return fmt.Errorf("failed to read source directory %s: %w", srcDir, err)
		}
		return nil
	})
	if err != nil {
		res.fail(err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		entryRel := childRel(rel, entry.Name())
		if s.excluded(entryRel) {
			logger.Trace("Excluded from sync", logger.String("path", entryRel))
			continue
		}
		srcPath := path.Join(srcDir, entry.Name())
		dstPath := dst.Join(dstDir, entry.Name())

		if entry.IsDir() {
			g.Go(func() error {
				s.syncDir(gctx, src, srcPath, dst, dstPath, entryRel, res)
				return nil
			})
			continue
		}
		g.Go(func() error {
			s.syncFile(gctx, src, srcPath, dst, dstPath, res)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Syncer) syncFile(ctx context.Context, src fs.FS, srcPath string, dst billy.Filesystem, dstPath string, res *Result) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.fail(fmt.Errorf("skipped %s: %w", dstPath, err))
		return
	}
	defer s.sem.Release(1)

	data, err := fs.ReadFile(src, srcPath)
	if err != nil {
		res.fail(fmt.Errorf("failed to read source %s: %w", srcPath, err))
		return
	}
	if !differsFrom(data, dst, dstPath) {
		res.addUnchanged()
		return
	}

	if s.opts.DryRun {
		logger.Info("Would write file", logger.String("path", dstPath))
		res.addWritten(dstPath)
		return
	}

	if err := safeio.WriteFilePreservePerms(dst, dstPath, data, sourceMode(src, srcPath)); err != nil {
		res.fail(fmt.Errorf("failed to write %s: %w", dstPath, err))
		return
	}
	logger.Debug("Wrote file", logger.String("path", dstPath))
	res.addWritten(dstPath)
}

func (s *Syncer) ensureDir(dst billy.Filesystem, dir string, res *Result) error {
	st, err := dst.Stat(dir)
	if err == nil {
		if st.IsDir() {
			return nil
		}
		return fmt.Errorf("destination %s exists and is not a directory", dir)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat destination %s: %w", dir, err)
	}
	if err := dst.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	res.addDirCreated(dir)
	return nil
}

// sourceMode keeps the executable bit for shipped scripts. Embedded files
// report 0444, which must not leak into the workspace.
func sourceMode(src fs.FS, srcPath string) os.FileMode {
	if info, err := fs.Stat(src, srcPath); err == nil && info.Mode().Perm()&0o111 != 0 {
		return 0o755
	}
	return 0o644
}
