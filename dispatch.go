package main

import (
	"errors"

	"dikta/beep"
	"dikta/coordinator"
	"dikta/hotkey"
	"dikta/log"
)

// app ties the key monitor to the coordinator. Everything here runs on the
// event loop goroutine; the coordinator serializes internally.
type app struct {
	coord   *coordinator.Coordinator
	monitor *hotkey.Monitor
	models  []string // model-select cycle order
}

func (a *app) handleKey(ev hotkey.Event) {
	trig, ok := a.monitor.OnKey(ev)
	if !ok {
		return
	}
	a.handleTrigger(trig)
}

func (a *app) handleTrigger(trig hotkey.Trigger) {
	var cmd coordinator.Command
	switch trig {
	case hotkey.TriggerStart:
		cmd = coordinator.Command{Kind: coordinator.CmdStartRecording}
	case hotkey.TriggerStop:
		cmd = coordinator.Command{Kind: coordinator.CmdStopRecording}
	case hotkey.TriggerAutoSend:
		cmd = coordinator.Command{Kind: coordinator.CmdAutoSend}
	case hotkey.TriggerCancel:
		cmd = coordinator.Command{Kind: coordinator.CmdCancelRecording}
	case hotkey.TriggerModelSelect:
		cmd = coordinator.Command{Kind: coordinator.CmdModelChange, Model: a.nextModel()}
	default:
		return
	}
	a.submit(cmd)
}

func (a *app) submit(cmd coordinator.Command) {
	err := a.coord.Submit(cmd)
	if err == nil {
		if cmd.Kind == coordinator.CmdCancelRecording {
			go beep.PlayCancel()
		}
		return
	}
	var busy *coordinator.BusyError
	if errors.As(err, &busy) {
		// Routine during chord release or double-presses, keep it quiet.
		log.CommandRejected(busy.Cmd.String(), busy.State.String(), "busy")
		return
	}
	// Resource and worker failures already went through the output sink.
	log.Errorf("command %s: %v", cmd.Kind, err)
}

// nextModel picks the cycle entry after the active model. An active model
// outside the cycle starts it from the beginning.
func (a *app) nextModel() string {
	active := a.coord.ActiveModel()
	for i, id := range a.models {
		if id == active {
			return a.models[(i+1)%len(a.models)]
		}
	}
	if len(a.models) > 0 {
		return a.models[0]
	}
	return active
}
