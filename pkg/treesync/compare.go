package treesync

import (
	"bytes"
	"fmt"
	"io/fs"

	"github.com/fulmenhq/promptlib/pkg/safeio"
	"github.com/go-git/go-billy/v5"
)

// Differs reports whether the file at dstPath needs to be (re)written to
// match srcPath. A missing or unreadable destination differs. An unreadable
// source is an error: it means the package itself is broken.
func Differs(src fs.FS, srcPath string, dst billy.Filesystem, dstPath string) (bool, error) {
	want, err := fs.ReadFile(src, srcPath)
	if err != nil {
		return false, fmt.Errorf("failed to read source %s: %w", srcPath, err)
	}
	return differsFrom(want, dst, dstPath), nil
}

func differsFrom(want []byte, dst billy.Filesystem, dstPath string) bool {
	st, err := dst.Stat(dstPath)
	if err != nil || st.IsDir() {
		return true
	}
	if st.Size() != int64(len(want)) {
		return true
	}
	got, err := safeio.ReadFile(dst, dstPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(want, got)
}
