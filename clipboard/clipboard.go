// Package clipboard copies transcripts to the system clipboard and
// delivers them into the focused window with a synthetic paste keystroke.
package clipboard

import (
	"time"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Deliver copies text and optionally pastes it into the focused window.
// With restore set, the previous clipboard contents come back after the
// paste so the transcript does not clobber what the user had there.
func Deliver(text string, paste, restore bool) error {
	var previous string
	if paste && restore {
		previous, _ = Read()
	}
	if err := Copy(text); err != nil {
		return err
	}
	if !paste {
		return nil
	}
	if err := Paste(); err != nil {
		return err
	}
	if restore && previous != "" {
		// The paste keystroke needs the transcript on the clipboard when
		// the focused app reads it.
		time.Sleep(150 * time.Millisecond)
		return Copy(previous)
	}
	return nil
}
