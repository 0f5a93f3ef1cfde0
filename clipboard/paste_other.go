//go:build !linux

package clipboard

import (
	"fmt"
	"runtime"

	"github.com/micmonay/keybd_event"
)

func Init() error {
	_, err := keybd_event.NewKeyBonding()
	return err
}

func Paste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard bonding: %w", err)
	}
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	return nil
}

func Verify() (string, error) {
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return "", err
	}
	return "synthetic keystrokes available", nil
}
