package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dikta/coordinator"
)

// TUI message types
type StateMsg struct {
	State coordinator.State
	Model string
}
type AudioLevelMsg struct{ Level float64 }
type TranscriptMsg struct {
	Text     string
	Copied   bool
	NoSpeech bool
}
type ErrorMsg struct{ Text string }
type ModeLineMsg struct{ Text string }   // provider/model info
type DeviceLineMsg struct{ Text string } // microphone device name
type LoadProgressMsg struct {
	Model string
	Pct   int
}
type tickMsg time.Time

type tuiModel struct {
	state             coordinator.State
	model             string
	frame             int
	recordingDuration float64
	audioLevel        float64
	peakLevel         float64
	msgCount          int
	width, height     int
	modeLine          string
	deviceLine        string
	loadModel         string
	loadPct           int
	lastText          string
	lastErr           string
	copiedToClipboard bool
	noSpeech          bool
}

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleLoad    = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleMode    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleMeter   = lipgloss.NewStyle().Foreground(lipgloss.Color("118"))
)

func NewTUIProgram() *tea.Program {
	m := tuiModel{state: coordinator.StateIdle}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		if m.state == coordinator.StateRecording {
			m.recordingDuration += 0.1
		}
		return m, tuiTick()

	case StateMsg:
		prev := m.state
		m.state = msg.State
		m.model = msg.Model
		if msg.State == coordinator.StateRecording && prev != coordinator.StateRecording {
			m.recordingDuration = 0
			m.audioLevel = 0
			m.peakLevel = 0
			m.lastErr = ""
		}
		if msg.State != coordinator.StateModelLoading {
			m.loadModel = ""
			m.loadPct = 0
		}

	case AudioLevelMsg:
		if m.state == coordinator.StateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.copiedToClipboard = msg.Copied
		m.noSpeech = msg.NoSpeech
		m.lastErr = ""

	case ErrorMsg:
		m.lastErr = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case LoadProgressMsg:
		m.loadModel = msg.Model
		m.loadPct = msg.Pct
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string

	switch m.state {
	case coordinator.StateRecording:
		lines = append(lines, styleRec.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)))
		lines = append(lines, styleMeter.Render(levelMeter(m.audioLevel, 30)))
		if m.recordingDuration > 1.0 && m.peakLevel < 0.02 {
			lines = append(lines, styleWarn.Render("  ⚠ no voice detected"))
		}
	case coordinator.StateProcessing:
		lines = append(lines, styleBusy.Render("◌ TRANSCRIBING"+spinner(m.frame)))
	case coordinator.StateModelLoading:
		label := "◌ LOADING " + m.model
		if m.loadModel != "" {
			label = fmt.Sprintf("◌ LOADING %s %d%%", m.loadModel, m.loadPct)
		}
		lines = append(lines, styleLoad.Render(label+spinner(m.frame)))
	default:
		lines = append(lines, styleIdle.Render("○ STANDBY"))
	}

	if m.modeLine != "" {
		lines = append(lines, styleMode.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleDim.Render(m.deviceLine))
	}

	lines = append(lines, "")

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if m.lastErr != "" {
		lines = append(lines, styleErr.Render("Error: "+m.lastErr))
	} else if m.lastText != "" {
		lines = append(lines, styleTitle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		textStyle := styleText
		if m.noSpeech {
			textStyle = styleWarn
		}
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, line := range wrapped {
			rendered := textStyle.Render(line)
			if i == len(wrapped)-1 && m.copiedToClipboard && !m.noSpeech {
				rendered += " " + styleCopied.Render("[✓ copied]")
			}
			lines = append(lines, rendered)
		}
	} else {
		lines = append(lines, styleDim.Render("No transcriptions yet"))
	}

	lines = append(lines, "")
	lines = append(lines, styleHelpKey.Render("start chord")+styleHelp.Render(" to record · ")+
		styleHelpKey.Render("ctrl+c")+styleHelp.Render(" to quit"))
	lines = append(lines, styleHelp.Render("dikta "+version))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

func spinner(frame int) string {
	dots := []string{"", ".", "..", "..."}
	return dots[(frame/3)%len(dots)]
}

func levelMeter(level float64, width int) string {
	filled := int(level * 3 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
