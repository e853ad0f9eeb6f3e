// Package workspace locates the consumer project that promptlib installs
// into and reads what it needs from that project's package.json.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buger/jsonparser"
	"github.com/fulmenhq/promptlib/pkg/config"
	"github.com/fulmenhq/promptlib/pkg/logger"
	git "github.com/go-git/go-git/v5"
)

// ResolveRoot returns the absolute workspace root. An empty root means
// INIT_CWD or the current directory. With gitRoot set, the root is lifted
// to the worktree of the enclosing git repository when there is one.
func ResolveRoot(root string, gitRoot bool) (string, error) {
	if root == "" {
		root = config.DefaultWorkDir()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("workspace root %s is not a directory", abs)
	}

	if !gitRoot {
		return abs, nil
	}
	top, err := gitTopLevel(abs)
	if err != nil {
		logger.Debug("Not inside a git repository, keeping workspace root",
			logger.String("root", abs), logger.Err(err))
		return abs, nil
	}
	if top != abs {
		logger.Info("Using enclosing git repository as workspace root", logger.String("root", top))
	}
	return top, nil
}

func gitTopLevel(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return filepath.Abs(wt.Filesystem.Root())
}

// IsDevDependency reports whether the package.json document data lists pkg
// under devDependencies. Only that path is parsed, so unrelated malformed
// sections do not matter.
func IsDevDependency(data []byte, pkg string) (bool, error) {
	_, dataType, _, err := jsonparser.Get(data, "devDependencies", pkg)
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read devDependencies: %w", err)
	}
	return dataType != jsonparser.NotExist, nil
}

// DevDependencyGate decides whether a postinstall hook should run in root.
// reason explains a negative answer.
func DevDependencyGate(root, pkg string) (ok bool, reason string) {
	data, err := os.ReadFile(filepath.Join(root, "package.json")) // #nosec G304 -- fixed name under the workspace root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, "no package.json in workspace root"
		}
		return false, fmt.Sprintf("unable to read package.json: %v", err)
	}
	dev, err := IsDevDependency(data, pkg)
	if err != nil {
		return false, fmt.Sprintf("unable to read package.json: %v", err)
	}
	if !dev {
		return false, pkg + " is not installed as a devDependency"
	}
	return true, ""
}
