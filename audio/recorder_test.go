package audio

import (
	"testing"
	"time"
)

func fakePCM(frames int) []byte {
	pcm := make([]byte, frames*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	return pcm
}

func TestRecorderStopReturnsBuffer(t *testing.T) {
	pcm := fakePCM(16000) // 1s at 16kHz
	cap := &FakeCapture{pcm: pcm}
	rec := NewRecorder(cap, RecorderConfig{SampleRate: 16000})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got, err := sess.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(got) != len(pcm) {
		t.Fatalf("buffer = %d bytes, want %d", len(got), len(pcm))
	}
	if cap.Started() {
		t.Fatal("device still running after Stop")
	}
}

func TestRecorderShortCaptureDropped(t *testing.T) {
	cap := &FakeCapture{pcm: fakePCM(100)} // well under 100ms
	rec := NewRecorder(cap, RecorderConfig{SampleRate: 16000})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got, err := sess.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got != nil {
		t.Fatalf("short capture returned %d bytes, want nil", len(got))
	}
}

func TestRecorderCancelDiscards(t *testing.T) {
	cap := &FakeCapture{pcm: fakePCM(16000)}
	rec := NewRecorder(cap, RecorderConfig{SampleRate: 16000})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess.Cancel()
	if cap.Started() {
		t.Fatal("device still running after Cancel")
	}
	// Idempotent: a late Stop after Cancel returns nothing.
	got, err := sess.Stop()
	if err != nil || got != nil {
		t.Fatalf("Stop after Cancel = %v bytes, err %v", len(got), err)
	}
}

func TestRecorderSecondSessionAfterFinish(t *testing.T) {
	cap := &FakeCapture{pcm: fakePCM(16000)}
	rec := NewRecorder(cap, RecorderConfig{SampleRate: 16000})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rec.Start(); err == nil {
		t.Fatal("second Start while capturing should fail")
	}
	sess.Cancel()
	if _, err := rec.Start(); err != nil {
		t.Fatalf("Start after finish: %v", err)
	}
}

func TestRecorderMaxDurationFires(t *testing.T) {
	cap := &FakeCapture{pcm: fakePCM(16000)}
	fired := make(chan struct{}, 1)
	rec := NewRecorder(cap, RecorderConfig{
		SampleRate:    16000,
		MaxDuration:   20 * time.Millisecond,
		OnMaxDuration: func() { fired <- struct{}{} },
	})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("max-duration callback never fired")
	}
	sess.Stop()
}

func TestRecorderLevelCallback(t *testing.T) {
	cap := &FakeCapture{pcm: fakePCM(16000)}
	var levels int
	rec := NewRecorder(cap, RecorderConfig{
		SampleRate: 16000,
		OnLevel:    func(float64) { levels++ },
	})

	sess, err := rec.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess.Stop()
	if levels == 0 {
		t.Fatal("no level callbacks during capture")
	}
}
