// Package coordinator arbitrates the microphone, the transcription worker
// and the model loader. All commands and worker completions funnel through
// one critical section, so every transition is atomic and at most one
// transcription and one model load are in flight at any time.
package coordinator

import (
	"context"
	"fmt"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateModelLoading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateModelLoading:
		return "model-loading"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type CommandKind int

const (
	CmdStartRecording CommandKind = iota
	CmdStopRecording
	CmdAutoSend
	CmdCancelRecording
	CmdModelChange
)

func (k CommandKind) String() string {
	switch k {
	case CmdStartRecording:
		return "start-recording"
	case CmdStopRecording:
		return "stop-recording"
	case CmdAutoSend:
		return "auto-send"
	case CmdCancelRecording:
		return "cancel-recording"
	case CmdModelChange:
		return "model-change"
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is the single submission unit. Model is set for CmdModelChange only.
type Command struct {
	Kind  CommandKind
	Model string
}

type ErrorKind int

const (
	ErrorBusy ErrorKind = iota
	ErrorResourceUnavailable
	ErrorWorkerFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorBusy:
		return "busy"
	case ErrorResourceUnavailable:
		return "resource-unavailable"
	case ErrorWorkerFailure:
		return "worker-failure"
	}
	return fmt.Sprintf("error(%d)", int(k))
}

// BusyError rejects a command that the current state forbids. It is user
// feedback, not a fault: the caller turns it into a message naming the state.
type BusyError struct {
	State State
	Cmd   CommandKind
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Cmd, e.State)
}

// Session is an in-progress capture. Cancel must return promptly and be safe
// at any point of the capture lifecycle, including after Stop.
type Session interface {
	Stop() ([]byte, error)
	Cancel()
}

// Recorder hands out exclusive capture sessions.
type Recorder interface {
	Start() (Session, error)
}

// Transcriber turns a finite PCM buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// ModelLoader prepares a model so the transcriber can use it.
type ModelLoader interface {
	Load(ctx context.Context, model string) error
}

// OutputSink receives transcription results and one-shot error reports.
type OutputSink interface {
	Deliver(text string, paste bool)
	ReportError(kind ErrorKind, err error)
}

// StatusSink is notified on every state transition, display only.
type StatusSink interface {
	Update(state State, model string)
}

type Coordinator struct {
	ctx         context.Context
	recorder    Recorder
	transcriber Transcriber
	loader      ModelLoader
	output      OutputSink
	status      StatusSink

	mu      sync.Mutex
	state   State
	model   string // active model, last known-good
	pending string // most recent not-yet-applied model change, "" = none
	session Session
}

type Config struct {
	Recorder    Recorder
	Transcriber Transcriber
	Loader      ModelLoader
	Output      OutputSink
	Status      StatusSink
	Model       string // active model at startup, already loaded
}

func New(ctx context.Context, cfg Config) *Coordinator {
	return &Coordinator{
		ctx:         ctx,
		recorder:    cfg.Recorder,
		transcriber: cfg.Transcriber,
		loader:      cfg.Loader,
		output:      cfg.Output,
		status:      cfg.Status,
		state:       StateIdle,
		model:       cfg.Model,
	}
}

// CurrentState reports the state for display. It must not gate a subsequent
// Submit: all gating happens inside Submit itself.
func (c *Coordinator) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveModel reports the last known-good model identifier.
func (c *Coordinator) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Submit is the single entry point for logical commands. A nil return means
// the command was accepted; *BusyError means the current state forbids it.
func (c *Coordinator) Submit(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd.Kind {
	case CmdStartRecording:
		return c.startRecording()
	case CmdStopRecording:
		return c.stopRecording(false)
	case CmdAutoSend:
		return c.stopRecording(true)
	case CmdCancelRecording:
		return c.cancelRecording()
	case CmdModelChange:
		return c.modelChange(cmd.Model)
	}
	return fmt.Errorf("unknown command kind %d", int(cmd.Kind))
}

func (c *Coordinator) startRecording() error {
	if c.state != StateIdle {
		return &BusyError{State: c.state, Cmd: CmdStartRecording}
	}
	sess, err := c.recorder.Start()
	if err != nil {
		err = fmt.Errorf("starting capture: %w", err)
		c.output.ReportError(ErrorResourceUnavailable, err)
		return err
	}
	c.session = sess
	c.setState(StateRecording)
	return nil
}

func (c *Coordinator) stopRecording(autoSend bool) error {
	if c.state != StateRecording {
		kind := CmdStopRecording
		if autoSend {
			kind = CmdAutoSend
		}
		return &BusyError{State: c.state, Cmd: kind}
	}
	sess := c.session
	c.session = nil
	pcm, err := sess.Stop()
	if err != nil {
		err = fmt.Errorf("stopping capture: %w", err)
		c.output.ReportError(ErrorResourceUnavailable, err)
		c.settle()
		return err
	}
	if len(pcm) == 0 {
		// Nothing worth transcribing (released immediately).
		c.settle()
		return nil
	}
	c.setState(StateProcessing)
	go c.runTranscription(pcm, autoSend)
	return nil
}

func (c *Coordinator) cancelRecording() error {
	if c.state != StateRecording {
		return &BusyError{State: c.state, Cmd: CmdCancelRecording}
	}
	sess := c.session
	c.session = nil
	sess.Cancel()
	c.settle()
	return nil
}

func (c *Coordinator) modelChange(model string) error {
	if model == "" {
		return fmt.Errorf("model-change: empty model identifier")
	}
	switch c.state {
	case StateIdle:
		if model == c.model {
			return nil
		}
		c.dispatchLoad(model)
		return nil
	case StateRecording:
		// Recording has produced nothing a user is waiting on yet; the
		// buffer so far is the whole cost of switching immediately.
		sess := c.session
		c.session = nil
		sess.Cancel()
		c.dispatchLoad(model)
		return nil
	case StateProcessing:
		// Last writer wins: only the most recent request survives.
		c.pending = model
		return nil
	case StateModelLoading:
		return &BusyError{State: c.state, Cmd: CmdModelChange}
	}
	return &BusyError{State: c.state, Cmd: CmdModelChange}
}

// dispatchLoad enters ModelLoading and hands model to the loader. Caller
// holds the lock.
func (c *Coordinator) dispatchLoad(model string) {
	c.setState(StateModelLoading)
	go c.runModelLoad(model)
}

// settle leaves the current state: either straight to Idle, or into
// ModelLoading when a pending model change is waiting. The pending slot is
// drained exactly once. Caller holds the lock.
func (c *Coordinator) settle() {
	if c.pending != "" {
		model := c.pending
		c.pending = ""
		if model != c.model {
			c.dispatchLoad(model)
			return
		}
	}
	c.setState(StateIdle)
}

func (c *Coordinator) runTranscription(pcm []byte, autoSend bool) {
	text, err := c.transcriber.Transcribe(c.ctx, pcm)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.output.ReportError(ErrorWorkerFailure, fmt.Errorf("transcription: %w", err))
	} else {
		c.output.Deliver(text, autoSend)
	}
	c.settle()
}

func (c *Coordinator) runModelLoad(model string) {
	err := c.loader.Load(c.ctx, model)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// Keep the previous known-good model; the failed identifier is
		// discarded, not retried.
		c.output.ReportError(ErrorWorkerFailure, fmt.Errorf("loading model %q: %w", model, err))
	} else {
		c.model = model
	}
	c.settle()
}

// setState records the new state and notifies the status sink. Caller holds
// the lock.
func (c *Coordinator) setState(s State) {
	c.state = s
	if c.status != nil {
		c.status.Update(s, c.model)
	}
}
