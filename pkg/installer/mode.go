package installer

import (
	"strings"

	"github.com/fulmenhq/promptlib/pkg/logger"
)

// Mode selects how the library reaches the workspace.
type Mode string

const (
	// ModeReference leaves the library in the package and points editor
	// settings at it.
	ModeReference Mode = "reference"
	// ModeEmbedded copies the library folders into the workspace.
	ModeEmbedded Mode = "embedded"
)

// Modes lists every install mode.
func Modes() []Mode {
	return []Mode{ModeReference, ModeEmbedded}
}

// ParseMode maps s to a Mode. Empty and unrecognised values fall back to
// ModeReference; the latter is logged.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeEmbedded:
		return ModeEmbedded
	case ModeReference, "":
		return ModeReference
	default:
		logger.Warn("Unknown install mode, using reference", logger.String("mode", s))
		return ModeReference
	}
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeEmbedded {
		return ModeReference
	}
	return ModeEmbedded
}

func (m Mode) String() string {
	return string(m)
}
