package hotkey

import "testing"

func testBindings(t *testing.T) []Binding {
	t.Helper()
	mk := func(s string) Chord {
		c, err := ParseChord(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return c
	}
	return []Binding{
		{TriggerStart, mk("ctrl+win")},
		{TriggerStop, mk("ctrl")},
		{TriggerAutoSend, mk("win")},
		{TriggerCancel, mk("esc")},
		{TriggerModelSelect, mk("ctrl+m")},
	}
}

func press(t *testing.T, m *Monitor, k Key) (Trigger, bool) {
	t.Helper()
	return m.OnKey(Event{Key: k, Down: true})
}

func release(t *testing.T, m *Monitor, k Key) {
	t.Helper()
	if trig, ok := m.OnKey(Event{Key: k, Down: false}); ok {
		t.Fatalf("release of %q fired %s", k, trig)
	}
}

func TestStartChordFires(t *testing.T) {
	m := NewMonitor(testBindings(t))

	// ctrl alone satisfies the stop chord on the way to the start chord;
	// the coordinator rejects it while idle, so it is harmless here.
	if trig, ok := press(t, m, "ctrl"); !ok || trig != TriggerStop {
		t.Fatalf("ctrl press: got %v %v", trig, ok)
	}
	trig, ok := press(t, m, "win")
	if !ok || trig != TriggerStart {
		t.Fatalf("win press completing ctrl+win: got %v %v, want start", trig, ok)
	}
}

func TestHalfReleasedStartChordDoesNotFireStop(t *testing.T) {
	m := NewMonitor(testBindings(t))

	press(t, m, "ctrl")
	press(t, m, "win") // start fires, stop and auto-send disarmed

	release(t, m, "win")
	if !m.Armed(TriggerStop) {
		// still disarmed: ctrl of the start chord is held
	} else {
		t.Fatal("stop re-armed while ctrl still held")
	}

	// A fresh win press must not fire auto-send. It may complete the start
	// chord again; the coordinator answers that with busy feedback.
	if trig, ok := press(t, m, "win"); ok && trig != TriggerStart {
		t.Fatalf("win press while disarmed fired %s", trig)
	}
	release(t, m, "win")

	release(t, m, "ctrl")
	if !m.Armed(TriggerStop) || !m.Armed(TriggerAutoSend) {
		t.Fatal("stop-type triggers not re-armed after full release")
	}

	// Full re-press now fires stop normally.
	if trig, ok := press(t, m, "ctrl"); !ok || trig != TriggerStop {
		t.Fatalf("ctrl press after re-arm: got %v %v, want stop", trig, ok)
	}
}

func TestMostSpecificChordWins(t *testing.T) {
	m := NewMonitor(testBindings(t))

	press(t, m, "win")         // auto-send (single-key chord)
	release(t, m, "win")
	press(t, m, "ctrl")        // stop
	trig, ok := press(t, m, "m")
	if !ok || trig != TriggerModelSelect {
		t.Fatalf("m press completing ctrl+m: got %v %v, want model-select", trig, ok)
	}
}

func TestCancelIndependentOfStartChord(t *testing.T) {
	m := NewMonitor(testBindings(t))

	press(t, m, "ctrl")
	press(t, m, "win") // start fires

	// esc shares no key with the start chord, so it stays armed.
	if !m.Armed(TriggerCancel) {
		t.Fatal("cancel disarmed though its chord is not a subset of the start chord")
	}
	if trig, ok := press(t, m, "esc"); !ok || trig != TriggerCancel {
		t.Fatalf("esc press: got %v %v, want cancel", trig, ok)
	}
}

func TestKeyRepeatIgnored(t *testing.T) {
	m := NewMonitor(testBindings(t))

	press(t, m, "esc")
	if trig, ok := press(t, m, "esc"); ok {
		t.Fatalf("key repeat fired %s", trig)
	}
}

func TestDisarmedSurvivesPartialRepress(t *testing.T) {
	m := NewMonitor(testBindings(t))

	press(t, m, "ctrl")
	press(t, m, "win") // start fires
	release(t, m, "win")
	// win re-pressed before ctrl was released: chord never fully released.
	press(t, m, "win")
	release(t, m, "ctrl")
	if m.Armed(TriggerStop) || m.Armed(TriggerAutoSend) {
		t.Fatal("re-armed while win of the start chord is held again")
	}
	release(t, m, "win")
	if !m.Armed(TriggerStop) || !m.Armed(TriggerAutoSend) {
		t.Fatal("triggers not re-armed after full release")
	}
}

func TestParseChord(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ctrl+win", "ctrl+win", true},
		{"Control + Super", "ctrl+win", true},
		{"esc", "esc", true},
		{"ctrl+ctrl", "", false},
		{"ctrl+bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		c, err := ParseChord(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseChord(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && c.String() != tc.want {
			t.Errorf("ParseChord(%q) = %s, want %s", tc.in, c, tc.want)
		}
	}
}
