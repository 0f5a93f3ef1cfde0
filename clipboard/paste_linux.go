//go:build linux

package clipboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ioctl requests from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564 // UI_SET_EVBIT
	uiSetKeybit = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate = 0x5501     // UI_DEV_CREATE
)

// event types and key codes from linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01

	keyLeftCtrl = 29
	keyV        = 47
)

const (
	busUSB          = 0x03
	pasteDeviceName = "dikta-paste"
	inputEventSize  = 24 // sizeof(struct input_event) on 64-bit
)

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

var (
	pasteFd   *os.File
	pasteOnce sync.Once
	pasteErr  error
)

// Init creates the virtual keyboard once. It needs write access to
// /dev/uinput, which usually means membership in the input group.
func Init() error {
	pasteOnce.Do(func() {
		pasteFd, pasteErr = createPasteDevice()
	})
	return pasteErr
}

func createPasteDevice() (*os.File, error) {
	node := "/dev/uinput"
	if _, err := os.Stat(node); err != nil {
		node = "/dev/input/uinput"
		if _, err := os.Stat(node); err != nil {
			return nil, errors.New("uinput device not found, try: sudo modprobe uinput")
		}
	}
	f, err := os.OpenFile(node, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, err
	}

	ioctl := func(req, arg uintptr) error {
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, arg); errno != 0 {
			return errno
		}
		return nil
	}

	if err := ioctl(uiSetEvbit, evKey); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(uiSetEvbit, evSyn); err != nil {
		f.Close()
		return nil, err
	}
	// Advertise every standard key so udev classifies this as a keyboard.
	for code := uintptr(0); code < 256; code++ {
		if err := ioctl(uiSetKeybit, code); err != nil {
			f.Close()
			return nil, err
		}
	}

	dev := uinputUserDev{
		ID: inputID{Bustype: busUSB, Vendor: 0x1234, Product: 0x5678, Version: 1},
	}
	copy(dev.Name[:], pasteDeviceName)
	if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(uiDevCreate, 0); err != nil {
		f.Close()
		return nil, err
	}

	// Give the compositor time to pick up the new input device.
	time.Sleep(200 * time.Millisecond)
	return f, nil
}

func sendKey(code uint16, down bool) error {
	value := int32(0)
	if down {
		value = 1
	}
	if err := binary.Write(pasteFd, binary.LittleEndian, &inputEvent{Type: evKey, Code: code, Value: value}); err != nil {
		return err
	}
	return binary.Write(pasteFd, binary.LittleEndian, &inputEvent{Type: evSyn})
}

// Paste injects a Ctrl+V keystroke through the virtual keyboard. The short
// sleeps let the compositor register each modifier transition.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	steps := []struct {
		code uint16
		down bool
	}{
		{keyLeftCtrl, true},
		{keyV, true},
		{keyV, false},
		{keyLeftCtrl, false},
	}
	for i, s := range steps {
		if err := sendKey(s.code, s.down); err != nil {
			return err
		}
		if i < len(steps)-1 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return nil
}

// findPasteEvdev locates the evdev node backing the virtual keyboard.
func findPasteEvdev() (string, error) {
	entries, err := os.ReadDir("/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == pasteDeviceName {
			return filepath.Join("/dev/input", e.Name()), nil
		}
	}
	return "", fmt.Errorf("%s evdev device not found", pasteDeviceName)
}

// Verify sends a Ctrl+V keystroke and reads it back from the kernel input
// layer to confirm the virtual keyboard actually delivers.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", fmt.Errorf("uinput init: %w", err)
	}

	evdevPath, err := findPasteEvdev()
	if err != nil {
		return "", err
	}
	evdev, err := os.Open(evdevPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", evdevPath, err)
	}
	defer evdev.Close()

	if err := Paste(); err != nil {
		return "", fmt.Errorf("paste send: %w", err)
	}

	type readback struct {
		ctrl, v bool
		err     error
	}
	ch := make(chan readback, 1)
	go func() {
		var r readback
		buf := make([]byte, inputEventSize*32)
		n, err := evdev.Read(buf)
		if err != nil {
			r.err = err
			ch <- r
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			switch binary.LittleEndian.Uint16(buf[i+18:]) {
			case keyLeftCtrl:
				r.ctrl = true
			case keyV:
				r.v = true
			}
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("reading events: %w", r.err)
		}
		if !r.ctrl || !r.v {
			return "", fmt.Errorf("missing events (ctrl=%v, v=%v)", r.ctrl, r.v)
		}
		return fmt.Sprintf("Ctrl+V keystroke verified via %s", evdevPath), nil
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("timed out waiting for keystroke events")
	}
}
