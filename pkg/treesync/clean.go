package treesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"
)

// Clean removes every file under dstDir that has a same-named counterpart
// under srcDir, then removes each directory it leaves empty (dstDir
// included). Directories still holding other entries are kept. Content is
// not compared. A missing dstDir is a no-op.
//
// In dry-run mode only file removals are reported; directories are
// reported when they are already empty.
func (s *Syncer) Clean(ctx context.Context, src fs.FS, srcDir string, dst billy.Filesystem, dstDir string) (*Result, error) {
	if err := checkSourceDir(src, srcDir); err != nil {
		return nil, err
	}
	res := &Result{}
	s.cleanDir(ctx, src, srcDir, dst, dstDir, "", res)
	res.Sort()
	logger.Debug("Tree cleaned",
		logger.String("source", srcDir),
		logger.String("destination", dstDir),
		logger.Int("removed", len(res.Removed)),
		logger.Int("dirs_removed", len(res.DirsRemoved)),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}

// RemoveFile removes a single destination file. A missing file is not an error.
func (s *Syncer) RemoveFile(ctx context.Context, dst billy.Filesystem, dstPath string) *Result {
	res := &Result{}
	s.removeFile(ctx, dst, dstPath, res)
	return res
}

// RemoveDirIfEmpty removes dir when it exists and has no entries.
func (s *Syncer) RemoveDirIfEmpty(ctx context.Context, dst billy.Filesystem, dir string) *Result {
	res := &Result{}
	if err := s.withSlot(ctx, func() error {
		s.removeIfEmpty(dst, dir, res)
		return nil
	}); err != nil {
		res.fail(fmt.Errorf("skipped %s: %w", dir, err))
	}
	return res
}

func (s *Syncer) cleanDir(ctx context.Context, src fs.FS, srcDir string, dst billy.Filesystem, dstDir, rel string, res *Result) {
	var entries []fs.DirEntry
	present := false
	err := s.withSlot(ctx, func() error {
		st, err := dst.Stat(dstDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to stat destination %s: %w", dstDir, err)
		}
		if !st.IsDir() {
			return fmt.Errorf("destination %s is not a directory, left in place", dstDir)
		}
		present = true
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
	if !present {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		entryRel := childRel(rel, entry.Name())
		if s.excluded(entryRel) {
			continue
		}
		srcPath := path.Join(srcDir, entry.Name())
		dstPath := dst.Join(dstDir, entry.Name())

		if entry.IsDir() {
			g.Go(func() error {
				s.cleanDir(gctx, src, srcPath, dst, dstPath, entryRel, res)
				return nil
			})
			continue
		}
		g.Go(func() error {
			s.removeFile(gctx, dst, dstPath, res)
			return nil
		})
	}
	// The emptiness check below must see every child removal.
	_ = g.Wait()

	if err := s.withSlot(ctx, func() error {
		s.removeIfEmpty(dst, dstDir, res)
		return nil
	}); err != nil {
		res.fail(fmt.Errorf("skipped %s: %w", dstDir, err))
	}
}

func (s *Syncer) removeFile(ctx context.Context, dst billy.Filesystem, dstPath string, res *Result) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.fail(fmt.Errorf("skipped %s: %w", dstPath, err))
		return
	}
	defer s.sem.Release(1)

	st, err := dst.Stat(dstPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			res.fail(fmt.Errorf("failed to stat %s: %w", dstPath, err))
		}
		return
	}
	if st.IsDir() {
		res.fail(fmt.Errorf("failed to remove %s: is a directory", dstPath))
		return
	}

	if s.opts.DryRun {
		logger.Info("Would remove file", logger.String("path", dstPath))
		res.addRemoved(dstPath)
		return
	}

	if err := dst.Remove(dstPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		res.fail(fmt.Errorf("failed to remove %s: %w", dstPath, err))
		return
	}
	logger.Debug("Removed file", logger.String("path", dstPath))
	res.addRemoved(dstPath)
}

func (s *Syncer) removeIfEmpty(dst billy.Filesystem, dir string, res *Result) {
	entries, err := dst.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			res.fail(fmt.Errorf("failed to list %s: %w", dir, err))
		}
		return
	}
	if len(entries) > 0 {
		return
	}

	if s.opts.DryRun {
		logger.Info("Would remove empty directory", logger.String("path", dir))
		res.addDirRemoved(dir)
		return
	}

	if err := dst.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		res.fail(fmt.Errorf("failed to remove directory %s: %w", dir, err))
		return
	}
	logger.Info("Removed empty directory", logger.String("path", dir))
	res.addDirRemoved(dir)
}
