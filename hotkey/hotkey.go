// Package hotkey turns global keyboard activity into logical commands. A
// platform Source delivers raw per-key press/release events; the Monitor
// matches them against configured chords and guards stop-type triggers with
// an arming flag so a half-released start chord never fires a spurious stop.
package hotkey

// Key is a normalized key name: "ctrl", "shift", "alt", "win", "space",
// "esc", or a single letter/digit.
type Key string

// Event is one physical press or release of a single key.
type Event struct {
	Key  Key
	Down bool
}

// Source delivers raw key events from the platform. Implementations read
// evdev on Linux and registered global hotkeys elsewhere.
type Source interface {
	Start() error
	Stop()
	Events() <-chan Event
}
