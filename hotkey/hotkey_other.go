//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

var xMods = map[Key]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
}

var xKeys = map[Key]xhotkey.Key{
	"space": xhotkey.KeySpace,
	"esc":   xhotkey.KeyEscape,
	"enter": xhotkey.KeyReturn,
	"tab":   xhotkey.KeyTab,
	"a":     xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
}

// xSource registers each configured chord as a global hotkey and replays its
// press/release as per-key events, so the Monitor behaves identically on
// every platform. Chords here must contain exactly one non-modifier key.
type xSource struct {
	chords []Chord
	events chan Event
	hks    []*xhotkey.Hotkey
	stop   chan struct{}
	once   sync.Once
}

func NewSource(chords []Chord) Source {
	return &xSource{
		chords: chords,
		events: make(chan Event, 16),
		stop:   make(chan struct{}),
	}
}

func (s *xSource) Events() <-chan Event { return s.events }

func (s *xSource) Start() error {
	for _, chord := range s.chords {
		var mods []xhotkey.Modifier
		var key xhotkey.Key
		var haveKey bool
		for _, k := range chord {
			if mod, ok := xMods[k]; ok {
				mods = append(mods, mod)
				continue
			}
			xk, ok := xKeys[k]
			if !ok {
				return fmt.Errorf("chord %s: key %q not supported on this platform", chord, k)
			}
			if haveKey {
				return fmt.Errorf("chord %s: more than one non-modifier key", chord)
			}
			key, haveKey = xk, true
		}
		if !haveKey {
			return fmt.Errorf("chord %s: needs a non-modifier key on this platform", chord)
		}

		hk := xhotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			s.unregister()
			return fmt.Errorf("registering %s: %w", chord, err)
		}
		s.hks = append(s.hks, hk)
		go s.replay(hk, chord)
	}
	return nil
}

// replay synthesizes per-key events for one registered chord.
func (s *xSource) replay(hk *xhotkey.Hotkey, chord Chord) {
	for {
		select {
		case <-hk.Keydown():
			for _, k := range chord {
				s.emit(Event{Key: k, Down: true})
			}
		case <-s.stop:
			return
		}
		select {
		case <-hk.Keyup():
			for _, k := range chord {
				s.emit(Event{Key: k, Down: false})
			}
		case <-s.stop:
			return
		}
	}
}

func (s *xSource) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}

func (s *xSource) unregister() {
	for _, hk := range s.hks {
		hk.Unregister()
	}
	s.hks = nil
}

func (s *xSource) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.unregister()
	})
}

// Diagnose checks whether global hotkey registration is available.
func Diagnose() (string, error) {
	return "global hotkey registration available", nil
}
