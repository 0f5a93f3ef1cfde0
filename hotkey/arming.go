package hotkey

import "fmt"

// Trigger names the logical command a chord is bound to.
type Trigger int

const (
	TriggerStart Trigger = iota
	TriggerStop
	TriggerAutoSend
	TriggerCancel
	TriggerModelSelect
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerStop:
		return "stop"
	case TriggerAutoSend:
		return "auto-send"
	case TriggerCancel:
		return "cancel"
	case TriggerModelSelect:
		return "model-select"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// stopType triggers are guarded by arming: they must not fire off the
// half-released remains of a start chord.
func (t Trigger) stopType() bool {
	switch t {
	case TriggerStop, TriggerAutoSend, TriggerCancel:
		return true
	}
	return false
}

// Binding attaches a chord to a trigger.
type Binding struct {
	Trigger Trigger
	Chord   Chord
}

// Monitor converts raw key events into at most one trigger per event.
//
// Firing the start trigger disarms every stop-type trigger whose chord is a
// subset of the fired chord; each is re-armed only once all keys of the
// firing chord have been released. This keeps, e.g., releasing one modifier
// of a two-modifier start chord from reading as a one-modifier stop.
//
// Not safe for concurrent use; feed it from a single event loop.
type Monitor struct {
	bindings []Binding
	held     map[Key]bool
	disarmed map[Trigger]Chord // trigger -> chord whose full release re-arms it
}

func NewMonitor(bindings []Binding) *Monitor {
	return &Monitor{
		bindings: bindings,
		held:     make(map[Key]bool),
		disarmed: make(map[Trigger]Chord),
	}
}

// Armed reports whether a trigger may currently fire.
func (m *Monitor) Armed(t Trigger) bool {
	_, disarmed := m.disarmed[t]
	return !disarmed
}

// OnKey consumes one physical event and yields at most one trigger. A chord
// fires on the press that completes it; when several armed chords complete
// on the same press the most specific (largest) one wins.
func (m *Monitor) OnKey(ev Event) (Trigger, bool) {
	if !ev.Down {
		delete(m.held, ev.Key)
		for trig, chord := range m.disarmed {
			if !chord.anyHeldIn(m.held) {
				delete(m.disarmed, trig)
			}
		}
		return 0, false
	}

	if m.held[ev.Key] {
		// Key repeat from the platform.
		return 0, false
	}
	m.held[ev.Key] = true

	var fired *Binding
	for i := range m.bindings {
		b := &m.bindings[i]
		if !b.Chord.Contains(ev.Key) || !b.Chord.heldIn(m.held) {
			continue
		}
		if !m.Armed(b.Trigger) {
			continue
		}
		if fired == nil || len(b.Chord) > len(fired.Chord) {
			fired = b
		}
	}
	if fired == nil {
		return 0, false
	}

	if fired.Trigger == TriggerStart {
		for _, b := range m.bindings {
			if b.Trigger.stopType() && b.Chord.SubsetOf(fired.Chord) {
				m.disarmed[b.Trigger] = fired.Chord
			}
		}
	}
	return fired.Trigger, true
}
