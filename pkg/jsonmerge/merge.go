package jsonmerge

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/promptlib/pkg/logger"
	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/go-git/go-billy/v5"
)

// MergeResult describes what Merge or Unmerge did to one file.
type MergeResult struct {
	Path string
	// Keys counts (key, sub-key) pairs set by Merge or removed by Unmerge.
	Keys    int
	Written bool
	Created bool
	Deleted bool
	// Corrupt is set when the existing file could not be parsed.
	Corrupt bool
}

// Merger applies fragments to destination files.
type Merger struct {
	DryRun bool
}

// Merge sets every fragment pair in the document at destPath. Missing or
// corrupt files start from an empty document. The file is written only
// when its canonical form changes.
func (m *Merger) Merge(fragment *Fragment, dst billy.Filesystem, destPath string) (*MergeResult, error) {
	res := &MergeResult{Path: destPath}
	doc, raw, exists, err := load(dst, destPath)
	if err != nil {
		if !exists {
			return nil, err
		}
		logger.Warn("Existing config is not a JSON object, starting from empty",
			logger.String("path", destPath), logger.Err(err))
		res.Corrupt = true
		doc = NewDocument()
	}
	if !exists && fragment.Size() == 0 {
		return res, nil
	}

	for _, key := range fragment.Keys() {
		entries, _ := fragment.Entries(key)
		target, ok := doc.Object(key)
		if !ok {
			target = newObject()
		}
		for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
			target.Set(pair.Key, pair.Value)
			res.Keys++
		}
		if err := doc.SetObject(key, target); err != nil {
			return nil, err
		}
	}

	out, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", destPath, err)
	}
	if exists && bytes.Equal(out, raw) {
		logger.Debug("Config already up to date", logger.String("path", destPath))
		return res, nil
	}

	res.Created = !exists
	if m.DryRun {
		logger.Info("Would update config", logger.String("path", destPath))
		res.Written = true
		return res, nil
	}
	if dir := filepath.Dir(destPath); dir != "." {
		if err := dst.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := safeio.WriteFilePreservePerms(dst, destPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	logger.Info("Updated config", logger.String("path", destPath), logger.Int("keys", res.Keys))
	res.Written = true
	return res, nil
}

// Unmerge removes every fragment pair whose current value still equals the
// fragment's value. Values the user changed are kept. Objects left empty
// are dropped, and a document left empty is deleted. Missing or corrupt
// files are left alone.
func (m *Merger) Unmerge(fragment *Fragment, dst billy.Filesystem, destPath string) (*MergeResult, error) {
	res := &MergeResult{Path: destPath}
	doc, _, exists, err := load(dst, destPath)
	if !exists {
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	if err != nil {
		logger.Warn("Config is not a JSON object, leaving it untouched",
			logger.String("path", destPath), logger.Err(err))
		res.Corrupt = true
		return res, nil
	}

	for _, key := range fragment.Keys() {
		entries, _ := fragment.Entries(key)
		target, ok := doc.Object(key)
		if !ok {
			continue
		}
		removed := 0
		for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
			cur, present := target.Get(pair.Key)
			if !present || !valuesEqual(cur, pair.Value) {
				continue
			}
			target.Delete(pair.Key)
			removed++
		}
		if removed == 0 {
			continue
		}
		res.Keys += removed
		if target.Len() == 0 {
			doc.Delete(key)
			continue
		}
		if err := doc.SetObject(key, target); err != nil {
			return nil, err
		}
	}

	if res.Keys == 0 {
		return res, nil
	}

	if doc.Len() == 0 {
		res.Deleted = true
		if m.DryRun {
			logger.Info("Would delete empty config", logger.String("path", destPath))
			return res, nil
		}
		if err := dst.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to delete %s: %w", destPath, err)
		}
		logger.Info("Deleted empty config", logger.String("path", destPath))
		return res, nil
	}

	out, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", destPath, err)
	}
	res.Written = true
	if m.DryRun {
		logger.Info("Would update config", logger.String("path", destPath))
		return res, nil
	}
	if err := safeio.WriteFilePreservePerms(dst, destPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	logger.Info("Removed library keys from config", logger.String("path", destPath), logger.Int("keys", res.Keys))
	return res, nil
}

// ReadDocument loads destPath for inspection. A missing file yields an
// empty document and exists == false.
func ReadDocument(dst billy.Filesystem, destPath string) (doc *Document, exists bool, err error) {
	doc, _, exists, err = load(dst, destPath)
	if err == nil && !exists {
		doc = NewDocument()
	}
	return doc, exists, err
}

// load reads and parses destPath. When exists is false, err is non-nil only
// for I/O failures other than not-exist. When exists is true, err reports a
// parse failure and raw holds the bytes read.
func load(dst billy.Filesystem, destPath string) (doc *Document, raw []byte, exists bool, err error) {
	raw, err = safeio.ReadFile(dst, destPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(), nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("failed to read %s: %w", destPath, err)
	}
	doc, err = ParseDocument(raw)
	if err != nil {
		return nil, raw, true, err
	}
	return doc, raw, true, nil
}
