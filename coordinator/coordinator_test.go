package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSession struct {
	mu        sync.Mutex
	pcm       []byte
	stopErr   error
	stopped   bool
	cancelled bool
}

func (s *fakeSession) Stop() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.pcm, s.stopErr
}

func (s *fakeSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

func (s *fakeSession) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type fakeRecorder struct {
	startErr error
	mu       sync.Mutex
	sessions []*fakeSession
	pcm      []byte
}

func (r *fakeRecorder) Start() (Session, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSession{pcm: r.pcm}
	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *fakeRecorder) last() *fakeSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[len(r.sessions)-1]
}

type transcribeReply struct {
	text string
	err  error
}

type fakeTranscriber struct {
	calls   chan []byte
	replies chan transcribeReply
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{
		calls:   make(chan []byte, 4),
		replies: make(chan transcribeReply, 4),
	}
}

func (f *fakeTranscriber) Transcribe(_ context.Context, pcm []byte) (string, error) {
	f.calls <- pcm
	r := <-f.replies
	return r.text, r.err
}

type fakeLoader struct {
	calls   chan string
	replies chan error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		calls:   make(chan string, 4),
		replies: make(chan error, 4),
	}
}

func (f *fakeLoader) Load(_ context.Context, model string) error {
	f.calls <- model
	return <-f.replies
}

type fakeOutput struct {
	mu        sync.Mutex
	delivered []string
	pastes    []bool
	errors    []ErrorKind
}

func (o *fakeOutput) Deliver(text string, paste bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered = append(o.delivered, text)
	o.pastes = append(o.pastes, paste)
}

func (o *fakeOutput) ReportError(kind ErrorKind, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, kind)
}

func (o *fakeOutput) deliveries() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.delivered...)
}

func (o *fakeOutput) errorKinds() []ErrorKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ErrorKind(nil), o.errors...)
}

type fakeStatus struct {
	updates chan State
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{updates: make(chan State, 32)}
}

func (s *fakeStatus) Update(state State, _ string) {
	s.updates <- state
}

func waitState(t *testing.T, s *fakeStatus, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-s.updates:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func waitCall[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func noCall[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	c      *Coordinator
	rec    *fakeRecorder
	tr     *fakeTranscriber
	loader *fakeLoader
	out    *fakeOutput
	status *fakeStatus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		rec:    &fakeRecorder{pcm: []byte{1, 2, 3, 4}},
		tr:     newFakeTranscriber(),
		loader: newFakeLoader(),
		out:    &fakeOutput{},
		status: newFakeStatus(),
	}
	h.c = New(context.Background(), Config{
		Recorder:    h.rec,
		Transcriber: h.tr,
		Loader:      h.loader,
		Output:      h.out,
		Status:      h.status,
		Model:       "base",
	})
	return h
}

func (h *harness) submit(t *testing.T, cmd Command) {
	t.Helper()
	if err := h.c.Submit(cmd); err != nil {
		t.Fatalf("submit %s: %v", cmd.Kind, err)
	}
}

func TestStartStopDeliver(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	if got := h.c.CurrentState(); got != StateRecording {
		t.Fatalf("state after start = %s", got)
	}

	h.submit(t, Command{Kind: CmdStopRecording})
	if got := h.c.CurrentState(); got != StateProcessing {
		t.Fatalf("state after stop = %s", got)
	}

	pcm := waitCall(t, h.tr.calls, "transcribe call")
	if len(pcm) != 4 {
		t.Fatalf("transcriber got %d bytes, want 4", len(pcm))
	}
	h.tr.replies <- transcribeReply{text: "hello"}

	waitState(t, h.status, StateIdle)
	if got := h.out.deliveries(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("deliveries = %v, want [hello]", got)
	}
}

func TestStartRejectedUnlessIdle(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	for _, state := range []State{StateRecording, StateProcessing, StateModelLoading} {
		err := h.c.Submit(Command{Kind: CmdStartRecording})
		var busy *BusyError
		if !errors.As(err, &busy) {
			t.Fatalf("start in %s: err = %v, want BusyError", state, err)
		}
		if busy.State != state {
			t.Fatalf("busy names %s, want %s", busy.State, state)
		}
		switch state {
		case StateRecording:
			h.submit(t, Command{Kind: CmdStopRecording})
			waitCall(t, h.tr.calls, "transcribe call")
		case StateProcessing:
			h.submit(t, Command{Kind: CmdModelChange, Model: "small"})
			h.tr.replies <- transcribeReply{text: "x"}
			waitCall(t, h.loader.calls, "load call")
		}
	}
	h.loader.replies <- nil
	waitState(t, h.status, StateIdle)
}

func TestCancelDiscardsBuffer(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdCancelRecording})

	if got := h.c.CurrentState(); got != StateIdle {
		t.Fatalf("state after cancel = %s", got)
	}
	if !h.rec.last().wasCancelled() {
		t.Fatal("capture session not cancelled")
	}
	noCall(t, h.tr.calls, "transcribe call after cancel")
	if got := h.out.deliveries(); len(got) != 0 {
		t.Fatalf("deliveries after cancel = %v", got)
	}
}

func TestModelChangeDuringRecording(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdModelChange, Model: "small"})

	if !h.rec.last().wasCancelled() {
		t.Fatal("capture session not cancelled by model change")
	}
	if got := h.c.CurrentState(); got != StateModelLoading {
		t.Fatalf("state = %s, want model-loading", got)
	}
	if got := waitCall(t, h.loader.calls, "load call"); got != "small" {
		t.Fatalf("loader got %q, want small", got)
	}
	h.loader.replies <- nil

	waitState(t, h.status, StateIdle)
	if got := h.c.ActiveModel(); got != "small" {
		t.Fatalf("active model = %q, want small", got)
	}
	noCall(t, h.tr.calls, "transcribe call for discarded buffer")
}

func TestPendingModelChangeLastWriterWins(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdStopRecording})
	waitCall(t, h.tr.calls, "transcribe call")

	h.submit(t, Command{Kind: CmdModelChange, Model: "small"})
	if got := h.c.CurrentState(); got != StateProcessing {
		t.Fatalf("state after queued change = %s, want processing", got)
	}
	h.submit(t, Command{Kind: CmdModelChange, Model: "tiny"})

	h.tr.replies <- transcribeReply{text: "x"}

	if got := waitCall(t, h.loader.calls, "load call"); got != "tiny" {
		t.Fatalf("loader got %q, want tiny (last writer wins)", got)
	}
	h.loader.replies <- nil
	waitState(t, h.status, StateIdle)

	if got := h.out.deliveries(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("deliveries = %v, want [x]", got)
	}
	if got := h.c.ActiveModel(); got != "tiny" {
		t.Fatalf("active model = %q, want tiny", got)
	}
	noCall(t, h.loader.calls, "second load call")
}

func TestModelChangeDuringLoadIsDropped(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdModelChange, Model: "small"})
	waitCall(t, h.loader.calls, "load call")

	err := h.c.Submit(Command{Kind: CmdModelChange, Model: "medium"})
	var busy *BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("model change during load: err = %v, want BusyError", err)
	}

	h.loader.replies <- nil
	waitState(t, h.status, StateIdle)

	if got := h.c.ActiveModel(); got != "small" {
		t.Fatalf("active model = %q, want small", got)
	}
	noCall(t, h.loader.calls, "load call for dropped request")
}

func TestModelChangeIdleSameModelNoop(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdModelChange, Model: "base"})
	if got := h.c.CurrentState(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	noCall(t, h.loader.calls, "load call for active model")
}

func TestTranscriptionFailureDrainsPending(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdStopRecording})
	waitCall(t, h.tr.calls, "transcribe call")
	h.submit(t, Command{Kind: CmdModelChange, Model: "small"})

	h.tr.replies <- transcribeReply{err: errors.New("api down")}

	if got := waitCall(t, h.loader.calls, "load call"); got != "small" {
		t.Fatalf("loader got %q, want small", got)
	}
	h.loader.replies <- nil
	waitState(t, h.status, StateIdle)

	if got := h.out.deliveries(); len(got) != 0 {
		t.Fatalf("deliveries after failure = %v", got)
	}
	kinds := h.out.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorWorkerFailure {
		t.Fatalf("error kinds = %v, want [worker-failure]", kinds)
	}
}

func TestModelLoadFailureKeepsPreviousModel(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdModelChange, Model: "large"})
	waitCall(t, h.loader.calls, "load call")
	h.loader.replies <- errors.New("download failed")

	waitState(t, h.status, StateIdle)
	if got := h.c.ActiveModel(); got != "base" {
		t.Fatalf("active model = %q, want base (last known-good)", got)
	}
	kinds := h.out.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorWorkerFailure {
		t.Fatalf("error kinds = %v, want [worker-failure]", kinds)
	}
}

func TestRecorderStartFailure(t *testing.T) {
	h := newHarness(t)
	h.rec.startErr = errors.New("no capture device")

	err := h.c.Submit(Command{Kind: CmdStartRecording})
	if err == nil {
		t.Fatal("expected error from start with no device")
	}
	if got := h.c.CurrentState(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	kinds := h.out.errorKinds()
	if len(kinds) != 1 || kinds[0] != ErrorResourceUnavailable {
		t.Fatalf("error kinds = %v, want [resource-unavailable]", kinds)
	}
}

func TestEmptyBufferSkipsTranscription(t *testing.T) {
	h := newHarness(t)
	h.rec.pcm = nil

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdStopRecording})

	if got := h.c.CurrentState(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	noCall(t, h.tr.calls, "transcribe call for empty buffer")
}

func TestAutoSendMarksDeliveryForPaste(t *testing.T) {
	h := newHarness(t)

	h.submit(t, Command{Kind: CmdStartRecording})
	h.submit(t, Command{Kind: CmdAutoSend})
	waitCall(t, h.tr.calls, "transcribe call")
	h.tr.replies <- transcribeReply{text: "send me"}

	waitState(t, h.status, StateIdle)
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if len(h.out.pastes) != 1 || !h.out.pastes[0] {
		t.Fatalf("pastes = %v, want [true]", h.out.pastes)
	}
}

func TestStopWhileIdleRejected(t *testing.T) {
	h := newHarness(t)
	for _, kind := range []CommandKind{CmdStopRecording, CmdAutoSend, CmdCancelRecording} {
		err := h.c.Submit(Command{Kind: kind})
		var busy *BusyError
		if !errors.As(err, &busy) {
			t.Fatalf("%s while idle: err = %v, want BusyError", kind, err)
		}
	}
}
