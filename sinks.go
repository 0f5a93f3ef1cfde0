package main

import (
	"strings"
	"sync"
	"time"

	"dikta/audio"
	"dikta/beep"
	"dikta/clipboard"
	"dikta/coordinator"
	"dikta/log"
	"dikta/tray"
)

// recorderAdapter narrows *audio.Recorder onto the coordinator's Recorder
// interface (Start returns a concrete *audio.CaptureSession).
type recorderAdapter struct {
	rec *audio.Recorder
}

func (a recorderAdapter) Start() (coordinator.Session, error) {
	return a.rec.Start()
}

// sessionStats tracks timing across one record-transcribe cycle so the
// output sink can report latency without the coordinator knowing about it.
type sessionStats struct {
	mu        sync.Mutex
	recStart  time.Time
	procStart time.Time
	recDur    time.Duration
}

func (s *sessionStats) recordingStarted() {
	s.mu.Lock()
	s.recStart = time.Now()
	s.mu.Unlock()
}

func (s *sessionStats) processingStarted() {
	s.mu.Lock()
	if !s.recStart.IsZero() {
		s.recDur = time.Since(s.recStart)
	}
	s.procStart = time.Now()
	s.mu.Unlock()
}

func (s *sessionStats) finish() (recDur time.Duration, totalMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.procStart.IsZero() {
		totalMs = float64(time.Since(s.procStart).Milliseconds())
	}
	return s.recDur, totalMs
}

// outputSink lands transcripts on the clipboard and surfaces failures.
type outputSink struct {
	provider  string
	autoPaste bool
	restore   bool
	stats     *sessionStats
	modelFn   func() string // active model, for metrics

	mu       sync.Mutex
	lastText string
	count    int
}

func (o *outputSink) Deliver(text string, paste bool) {
	recDur, totalMs := o.stats.finish()

	text = strings.TrimSpace(text)
	noSpeech := text == ""
	display := text
	if noSpeech {
		display = "(no speech detected)"
		log.Info("no_speech")
	}

	copied := false
	if !noSpeech {
		doPaste := paste && o.autoPaste
		if err := clipboard.Deliver(text, doPaste, o.restore); err != nil {
			log.Errorf("clipboard delivery: %v", err)
			tray.SetError(err.Error())
		} else {
			copied = true
		}

		o.mu.Lock()
		o.lastText = text
		o.count++
		o.mu.Unlock()

		model := ""
		if o.modelFn != nil {
			model = o.modelFn()
		}
		log.TranscriptionText(text)
		log.TranscriptionMetrics(log.Metrics{
			AudioLengthS: recDur.Seconds(),
			TotalTimeMs:  totalMs,
		}, o.provider, model)
		tray.SetLastTranscript(recDur, totalMs)
	}

	go beep.PlayEnd()
	tuiSend(TranscriptMsg{Text: display, Copied: copied, NoSpeech: noSpeech})
}

func (o *outputSink) ReportError(kind coordinator.ErrorKind, err error) {
	log.Errorf("%s: %v", kind, err)
	tuiSend(ErrorMsg{Text: err.Error()})
	if kind != coordinator.ErrorBusy {
		tray.SetError(err.Error())
		go beep.PlayError()
	}
}

func (o *outputSink) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastText
}

func (o *outputSink) transcripts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// statusSink fans state transitions out to the log, tray, and TUI.
type statusSink struct {
	stats *sessionStats

	mu   sync.Mutex
	prev coordinator.State
}

func (s *statusSink) Update(state coordinator.State, model string) {
	s.mu.Lock()
	prev := s.prev
	s.prev = state
	s.mu.Unlock()

	log.StateChange(prev.String(), state.String())

	switch {
	case state == coordinator.StateRecording && prev != coordinator.StateRecording:
		s.stats.recordingStarted()
		go beep.PlayStart()
	case state == coordinator.StateProcessing && prev == coordinator.StateRecording:
		s.stats.processingStarted()
	case state == coordinator.StateIdle && prev == coordinator.StateModelLoading:
		tray.SetModel(model)
	}

	tray.SetState(state.String(), model)
	tuiSend(StateMsg{State: state, Model: model})
}
