// Package treesync mirrors a read-only asset tree into a destination
// filesystem and reverses that mirroring.
//
// Sync is additive: it creates directories and writes files whose bytes
// differ, and never deletes destination-only entries. Clean is structural:
// it removes destination files that have a same-named source counterpart,
// whatever their content, and then prunes directories it left empty.
//
// Siblings within a directory are processed concurrently. Every file
// operation holds a slot of a semaphore shared by the Syncer, so the
// number of in-flight reads, writes and removals is capped by
// Options.Concurrency regardless of tree depth.
package treesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/promptlib/pkg/logger"
	"golang.org/x/sync/semaphore"
)

// ErrSourceNotFound is returned when the source root of an operation does
// not exist. Callers treat it as "nothing to do" rather than a failure.
var ErrSourceNotFound = errors.New("source asset root not found")

// Options configures a Syncer.
type Options struct {
	// Concurrency caps in-flight file operations. Zero means runtime.NumCPU().
	Concurrency int
	// DryRun reports planned writes and removals without performing them.
	DryRun bool
	// Exclude holds doublestar patterns matched against paths relative to
	// the synced root. Excluded entries are neither copied nor cleaned.
	Exclude []string
}

// Syncer performs tree synchronization. A Syncer is safe for concurrent use.
type Syncer struct {
	opts Options
	sem  *semaphore.Weighted
}

// New creates a Syncer.
func New(opts Options) *Syncer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Syncer{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.Concurrency)),
	}
}

// WithExclude returns a Syncer sharing s's semaphore with a different set
// of exclude patterns.
func (s *Syncer) WithExclude(patterns []string) *Syncer {
	opts := s.opts
	opts.Exclude = patterns
	return &Syncer{opts: opts, sem: s.sem}
}

// DryRun reports whether s only plans changes.
func (s *Syncer) DryRun() bool {
	return s.opts.DryRun
}

// withSlot runs fn while holding one semaphore slot. Slots are never held
// while waiting on children, so nested directories cannot deadlock.
func (s *Syncer) withSlot(ctx context.Context, fn func() error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn()
}

func (s *Syncer) excluded(rel string) bool {
	for _, p := range s.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Result collects what an operation did. In dry-run mode Written and
// Removed list what would have been written or removed.
type Result struct {
	mu sync.Mutex

	Written     []string
	Unchanged   int
	Removed     []string
	DirsCreated []string
	DirsRemoved []string
	Errors      []error
}

// Changed reports whether the operation modified (or would modify) the destination.
func (r *Result) Changed() bool {
	return len(r.Written) > 0 || len(r.Removed) > 0 || len(r.DirsCreated) > 0 || len(r.DirsRemoved) > 0
}

// Absorb appends o's entries to r.
func (r *Result) Absorb(o *Result) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Written = append(r.Written, o.Written...)
	r.Unchanged += o.Unchanged
	r.Removed = append(r.Removed, o.Removed...)
	r.DirsCreated = append(r.DirsCreated, o.DirsCreated...)
	r.DirsRemoved = append(r.DirsRemoved, o.DirsRemoved...)
	r.Errors = append(r.Errors, o.Errors...)
}

func (r *Result) addWritten(p string) {
	r.mu.Lock()
	r.Written = append(r.Written, p)
	r.mu.Unlock()
}

func (r *Result) addUnchanged() {
	r.mu.Lock()
	r.Unchanged++
	r.mu.Unlock()
}

func (r *Result) addRemoved(p string) {
	r.mu.Lock()
	r.Removed = append(r.Removed, p)
	r.mu.Unlock()
}

func (r *Result) addDirCreated(p string) {
	r.mu.Lock()
	r.DirsCreated = append(r.DirsCreated, p)
	r.mu.Unlock()
}

func (r *Result) addDirRemoved(p string) {
	r.mu.Lock()
	r.DirsRemoved = append(r.DirsRemoved, p)
	r.mu.Unlock()
}

// fail records err and logs it; per-file failures never stop siblings.
func (r *Result) fail(err error) {
	logger.Warn(err.Error())
	r.mu.Lock()
	r.Errors = append(r.Errors, err)
	r.mu.Unlock()
}

// Sort orders every path list.
func (r *Result) Sort() {
	sort.Strings(r.Written)
	sort.Strings(r.Removed)
	sort.Strings(r.DirsCreated)
	sort.Strings(r.DirsRemoved)
}

func checkSourceDir(src fs.FS, dir string) error {
	info, err := fs.Stat(src, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, dir)
		}
		return fmt.Errorf("failed to stat source %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, dir)
	}
	return nil
}

func childRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return path.Join(rel, name)
}
