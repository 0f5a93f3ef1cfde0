package hotkey

import (
	"fmt"
	"strings"
)

// Chord is the set of keys that must be held together to fire a trigger.
type Chord []Key

var keyAliases = map[string]Key{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"win":     "win",
	"super":   "win",
	"meta":    "win",
	"cmd":     "win",
	"space":   "space",
	"esc":     "esc",
	"escape":  "esc",
	"enter":   "enter",
	"return":  "enter",
	"tab":     "tab",
}

// ParseChord parses a config string like "ctrl+win" or "esc" into a Chord.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(s, "+")
	var chord Chord
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("empty key in chord %q", s)
		}
		key, ok := keyAliases[p]
		if !ok {
			if len(p) != 1 {
				return nil, fmt.Errorf("unknown key %q in chord %q", p, s)
			}
			key = Key(p)
		}
		if chord.Contains(key) {
			return nil, fmt.Errorf("duplicate key %q in chord %q", p, s)
		}
		chord = append(chord, key)
	}
	if len(chord) == 0 {
		return nil, fmt.Errorf("empty chord")
	}
	return chord, nil
}

func (c Chord) String() string {
	parts := make([]string, len(c))
	for i, k := range c {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

func (c Chord) Contains(k Key) bool {
	for _, key := range c {
		if key == k {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every key of c appears in other.
func (c Chord) SubsetOf(other Chord) bool {
	for _, k := range c {
		if !other.Contains(k) {
			return false
		}
	}
	return true
}

// heldIn reports whether every key of c is currently held.
func (c Chord) heldIn(held map[Key]bool) bool {
	for _, k := range c {
		if !held[k] {
			return false
		}
	}
	return true
}

// anyHeldIn reports whether at least one key of c is currently held.
func (c Chord) anyHeldIn(held map[Key]bool) bool {
	for _, k := range c {
		if held[k] {
			return true
		}
	}
	return false
}
