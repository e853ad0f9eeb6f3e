// Package assets embeds the prompt library shipped inside the promptlib
// binary: the asset manifest, the library tree and the config fragments.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed embedded_library
var library embed.FS

// LibraryFS returns the packaged asset tree rooted at the directory holding
// manifest.yaml.
func LibraryFS() fs.FS {
	if sub, err := fs.Sub(library, "embedded_library"); err == nil {
		return sub
	}
	return library
}
