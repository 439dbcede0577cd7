package player

import (
	"log/slog"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

// New selects a player implementation by name. "null" disables actual audio
// output; any other name is treated as an external player binary.
func New(name string) donation.Player {
	switch name {
	case "", "null":
		slog.Info("Using null player (no audio output)")
		return NewNullPlayer()
	default:
		slog.Info("Using external player", "binary", name)
		return NewExecPlayer(name)
	}
}
