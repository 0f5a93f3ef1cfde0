package main

import (
	"context"
	"testing"
	"time"

	"dikta/coordinator"
	"dikta/hotkey"
)

type stubSession struct{ pcm []byte }

func (s *stubSession) Stop() ([]byte, error) { return s.pcm, nil }
func (s *stubSession) Cancel()               {}

type stubRecorder struct{}

func (stubRecorder) Start() (coordinator.Session, error) {
	return &stubSession{pcm: []byte{1, 2, 3, 4}}, nil
}

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return s.text, nil
}

type stubLoader struct{ loaded chan string }

func (s stubLoader) Load(_ context.Context, m string) error {
	s.loaded <- m
	return nil
}

type stubOutput struct{ delivered chan string }

func (s stubOutput) Deliver(text string, _ bool)              { s.delivered <- text }
func (s stubOutput) ReportError(coordinator.ErrorKind, error) {}

type stubStatus struct{ states chan coordinator.State }

func (s stubStatus) Update(state coordinator.State, _ string) { s.states <- state }

func newTestApp(t *testing.T) (*app, stubLoader, stubOutput, stubStatus) {
	t.Helper()
	loader := stubLoader{loaded: make(chan string, 4)}
	output := stubOutput{delivered: make(chan string, 4)}
	status := stubStatus{states: make(chan coordinator.State, 16)}

	coord := coordinator.New(context.Background(), coordinator.Config{
		Recorder:    stubRecorder{},
		Transcriber: stubTranscriber{text: "hello"},
		Loader:      loader,
		Output:      output,
		Status:      status,
		Model:       "base",
	})

	bindings := []hotkey.Binding{
		{Trigger: hotkey.TriggerStart, Chord: hotkey.Chord{"ctrl", "win"}},
		{Trigger: hotkey.TriggerStop, Chord: hotkey.Chord{"ctrl"}},
		{Trigger: hotkey.TriggerAutoSend, Chord: hotkey.Chord{"win"}},
		{Trigger: hotkey.TriggerCancel, Chord: hotkey.Chord{"esc"}},
		{Trigger: hotkey.TriggerModelSelect, Chord: hotkey.Chord{"ctrl", "m"}},
	}
	a := &app{
		coord:   coord,
		monitor: hotkey.NewMonitor(bindings),
		models:  []string{"tiny", "base", "small"},
	}
	return a, loader, output, status
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
		panic("unreachable")
	}
}

func TestKeyEventsDriveRecordingCycle(t *testing.T) {
	a, _, output, status := newTestApp(t)

	a.handleKey(hotkey.Event{Key: "ctrl", Down: true})
	a.handleKey(hotkey.Event{Key: "win", Down: true})
	if got := recv(t, status.states, "recording state"); got != coordinator.StateRecording {
		t.Fatalf("state = %v, want recording", got)
	}

	a.handleKey(hotkey.Event{Key: "win", Down: false})
	a.handleKey(hotkey.Event{Key: "ctrl", Down: false})

	// Re-press stop alone now that the chord fully released.
	a.handleKey(hotkey.Event{Key: "ctrl", Down: true})
	if got := recv(t, output.delivered, "transcript"); got != "hello" {
		t.Fatalf("delivered %q, want hello", got)
	}
}

func TestHalfReleasedStartChordIsNoStop(t *testing.T) {
	a, _, output, status := newTestApp(t)

	a.handleKey(hotkey.Event{Key: "ctrl", Down: true})
	a.handleKey(hotkey.Event{Key: "win", Down: true})
	recv(t, status.states, "recording state")

	// Release only win: stop must not fire, recording continues.
	a.handleKey(hotkey.Event{Key: "win", Down: false})
	if got := a.coord.CurrentState(); got != coordinator.StateRecording {
		t.Fatalf("state after partial release = %v, want recording", got)
	}
	select {
	case text := <-output.delivered:
		t.Fatalf("unexpected delivery %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestModelSelectCyclesModels(t *testing.T) {
	a, loader, _, _ := newTestApp(t)

	a.handleTrigger(hotkey.TriggerModelSelect)
	if got := recv(t, loader.loaded, "model load"); got != "small" {
		t.Fatalf("loaded %q, want small (cycle entry after base)", got)
	}
}

func TestNextModelWrapsAround(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	a.models = []string{"base"}
	if got := a.nextModel(); got != "base" {
		t.Fatalf("nextModel = %q, want base", got)
	}
	a.models = nil
	if got := a.nextModel(); got != "base" {
		t.Fatalf("nextModel with empty cycle = %q, want active model", got)
	}
}
