// Package buildinfo exposes the version stamped into the promptlib binary.
package buildinfo

import "runtime/debug"

// BinaryVersion is set at build time via
// -ldflags "-X github.com/fulmenhq/promptlib/pkg/buildinfo.BinaryVersion=v1.2.3".
var BinaryVersion = "dev"

// ModuleVersion returns the module version embedded by the Go toolchain (when available).
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}

// Version prefers the ldflags value and falls back to the module version,
// which is what `go install module@version` binaries carry.
func Version() string {
	if BinaryVersion != "" && BinaryVersion != "dev" {
		return BinaryVersion
	}
	if v := ModuleVersion(); v != "" && v != "(devel)" {
		return v
	}
	return "dev"
}
