// Package safeio holds the small set of filesystem helpers that every
// writer in promptlib goes through: path validation for manifest-supplied
// names and permission-preserving writes on a billy filesystem.
package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrTraversal is returned for paths that would escape their root.
var ErrTraversal = errors.New("path traversal detected")

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.ToSlash(filepath.Clean(p))
	for _, seg := range strings.Split(c, "/") {
		if seg == ".." {
			return "", ErrTraversal
		}
	}
	return c, nil
}

// CleanRelPath is CleanUserPath for paths that must also stay relative,
// such as destinations inside the workspace.
func CleanRelPath(p string) (string, error) {
	c, err := CleanUserPath(p)
	if err != nil {
		return "", err
	}
	if path.IsAbs(c) || filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute path not allowed: %s", p)
	}
	return c, nil
}

// ReadFile reads name from fs in full.
func ReadFile(fs billy.Basic, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// WriteFilePreservePerms writes data to name preserving the existing file
// mode when the file exists, and using fallback otherwise. A zero fallback
// means 0644.
func WriteFilePreservePerms(fs billy.Filesystem, name string, data []byte, fallback os.FileMode) error {
	mode := fallback
	if mode == 0 {
		mode = 0o644
	}
	if st, err := fs.Stat(name); err == nil {
		if existing := st.Mode() & 0o777; existing != 0 {
			mode = existing
		}
	}
	return util.WriteFile(fs, name, data, mode)
}

// Exists reports whether name exists on fs. Errors other than not-exist
// are treated as existing so callers attempt the operation and surface
// the real error.
func Exists(fs billy.Basic, name string) bool {
	_, err := fs.Stat(name)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
