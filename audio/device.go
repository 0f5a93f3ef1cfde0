package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

var errPickerCancelled = fmt.Errorf("selection cancelled")

// SelectDevice prompts for a capture device on the terminal. A single
// available device is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := picker{devices: devices}
	p.render()
	for {
		choice, done, err := p.step()
		if err == errPickerCancelled {
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(130)
		}
		if err != nil {
			return nil, err
		}
		if done {
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			return choice, nil
		}
		p.rewind()
		p.render()
	}
}

type picker struct {
	devices []DeviceInfo
	cursor  int
}

func (p *picker) render() {
	fmt.Print("\r\x1b[J")
	fmt.Print("Select input device (↑/↓, Enter to confirm):\r\n\r\n")
	for i, d := range p.devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Printf("    %s%s\r\n", d.Name, tag)
		}
	}
}

// rewind moves the cursor back over the rendered list for a redraw.
func (p *picker) rewind() {
	fmt.Printf("\x1b[%dA", len(p.devices)+2)
}

// step reads one key and applies it. done is true on Enter.
func (p *picker) step() (choice *DeviceInfo, done bool, err error) {
	buf := make([]byte, 3)
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return nil, false, fmt.Errorf("reading input: %w", err)
	}

	up := n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A'
	down := n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B'
	if n == 1 {
		switch buf[0] {
		case 13: // Enter
			return &p.devices[p.cursor], true, nil
		case 3: // Ctrl+C
			return nil, false, errPickerCancelled
		case 'k':
			up = true
		case 'j':
			down = true
		}
	}

	if up && p.cursor > 0 {
		p.cursor--
	}
	if down && p.cursor < len(p.devices)-1 {
		p.cursor++
	}
	return nil, false, nil
}
