package installer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/go-git/go-billy/v5"
)

const gitignoreName = ".gitignore"

// GitignoreResult records the .gitignore lines promptlib added or removed.
type GitignoreResult struct {
	Added   []string
	Removed []string
	Written bool
	Deleted bool
}

func readGitignore(dst billy.Filesystem) (string, bool, error) {
	data, err := safeio.ReadFile(dst, gitignoreName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", gitignoreName, err)
	}
	return string(data), true, nil
}

func hasLine(content, pattern string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == pattern {
			return true
		}
	}
	return false
}

// ensureGitignore appends each pattern that is not already a line of the
// workspace .gitignore, creating the file when needed.
func ensureGitignore(dst billy.Filesystem, patterns []string, dryRun bool) (*GitignoreResult, error) {
	res := &GitignoreResult{}
	content, _, err := readGitignore(dst)
	if err != nil {
		return res, err
	}

	var b strings.Builder
	b.WriteString(content)
	for _, p := range patterns {
		if hasLine(b.String(), p) {
			logger.Debug(".gitignore already contains pattern", logger.String("pattern", p))
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(p)
		b.WriteByte('\n')
		res.Added = append(res.Added, p)
	}
	if len(res.Added) == 0 {
		return res, nil
	}

	res.Written = true
	if dryRun {
		logger.Info("Would update .gitignore", logger.Int("patterns", len(res.Added)))
		return res, nil
	}
	if err := safeio.WriteFilePreservePerms(dst, gitignoreName, []byte(b.String()), 0o644); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", gitignoreName, err)
	}
	logger.Info(".gitignore updated", logger.String("patterns", strings.Join(res.Added, ", ")))
	return res, nil
}

// removeGitignore drops lines equal to one of patterns. A .gitignore left
// with nothing but whitespace is deleted.
func removeGitignore(dst billy.Filesystem, patterns []string, dryRun bool) (*GitignoreResult, error) {
	res := &GitignoreResult{}
	content, exists, err := readGitignore(dst)
	if err != nil || !exists {
		return res, err
	}

	owned := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		owned[p] = true
	}
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); owned[trimmed] {
			res.Removed = append(res.Removed, trimmed)
			continue
		}
		kept = append(kept, line)
	}
	if len(res.Removed) == 0 {
		return res, nil
	}

	out := strings.Join(kept, "\n")
	if strings.TrimSpace(out) == "" {
		res.Deleted = true
		if dryRun {
			logger.Info("Would delete empty .gitignore")
			return res, nil
		}
		if err := dst.Remove(gitignoreName); err != nil && !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("failed to delete %s: %w", gitignoreName, err)
		}
		logger.Info("Deleted empty .gitignore")
		return res, nil
	}

	res.Written = true
	if dryRun {
		logger.Info("Would update .gitignore", logger.Int("patterns", len(res.Removed)))
		return res, nil
	}
	if err := safeio.WriteFilePreservePerms(dst, gitignoreName, []byte(out), 0o644); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", gitignoreName, err)
	}
	logger.Info("Removed library patterns from .gitignore", logger.Int("patterns", len(res.Removed)))
	return res, nil
}
