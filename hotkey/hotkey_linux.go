//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

const inputEventSize = 24

// evdev key codes from linux/input-event-codes.h, mapped to normalized names.
// Left and right variants collapse onto one Key so chords don't care which
// side was pressed.
var evdevKeys = map[uint16]Key{
	1:   "esc",
	15:  "tab",
	28:  "enter",
	29:  "ctrl", // left
	97:  "ctrl", // right
	42:  "shift",
	54:  "shift",
	56:  "alt",
	100: "alt",
	125: "win",
	126: "win",
	57:  "space",
	// letter rows
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
	// digit row
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
}

type evdevSource struct {
	events chan Event
	files  []*os.File
	stop   chan struct{}
	once   sync.Once
}

// NewSource reads raw key events from every readable keyboard under
// /dev/input. Requires membership in the 'input' group. The chord list is
// unused here; evdev sees every key.
func NewSource(_ []Chord) Source {
	return &evdevSource{
		events: make(chan Event, 16),
	}
}

func (s *evdevSource) Events() <-chan Event { return s.events }

func (s *evdevSource) Start() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	s.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		s.files = append(s.files, f)
		go s.readEvents(f)
	}

	if len(s.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (s *evdevSource) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			key, ok := evdevKeys[evCode]
			if !ok {
				continue
			}

			switch evValue {
			case keyPress:
				s.emit(Event{Key: key, Down: true})
			case keyRelease:
				s.emit(Event{Key: key, Down: false})
			}
			// evValue 2 is autorepeat; the Monitor treats a repeated
			// press as held anyway, so it is dropped here.
		}
	}
}

func (s *evdevSource) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}

func (s *evdevSource) Stop() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		for _, f := range s.files {
			f.Close()
		}
	})
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose checks whether raw keyboard access works; used by doctor.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
