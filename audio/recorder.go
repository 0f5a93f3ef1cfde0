package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// minCaptureFrames is the shortest buffer worth transcribing; anything
// below it reads as an accidental tap and is dropped.
const minCaptureFrames = 1600 // 100ms at 16kHz

// RecorderConfig tunes a Recorder.
type RecorderConfig struct {
	SampleRate uint32
	// MaxDuration auto-stops a forgotten recording. Zero disables the
	// timer. The stop surfaces through OnMaxDuration as an ordinary
	// stop command, not through the session itself.
	MaxDuration   time.Duration
	OnMaxDuration func()
	// OnLevel receives the RMS level of each chunk for metering.
	OnLevel func(level float64)
}

// Recorder hands out capture sessions over one device. The coordinator
// guarantees at most one session is live at a time; Start enforces it
// anyway so a misuse fails loudly instead of interleaving two captures.
type Recorder struct {
	device CaptureDevice
	cfg    RecorderConfig

	mu     sync.Mutex
	active *CaptureSession
}

func NewRecorder(device CaptureDevice, cfg RecorderConfig) *Recorder {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	return &Recorder{device: device, cfg: cfg}
}

// SwapDevice replaces the capture device for future sessions and closes
// the old one. A live session keeps capturing from the device it opened.
func (r *Recorder) SwapDevice(device CaptureDevice) {
	r.mu.Lock()
	old := r.device
	r.device = device
	busy := r.active != nil && !r.active.finished()
	r.mu.Unlock()
	if old != nil && old != device && !busy {
		old.Close()
	}
}

// Start begins capturing and returns the session owning the buffer.
func (r *Recorder) Start() (*CaptureSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && !r.active.finished() {
		return nil, fmt.Errorf("capture already in use")
	}

	s := &CaptureSession{recorder: r, device: r.device}
	r.device.SetCallback(s.onData)
	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		return nil, err
	}
	if r.cfg.MaxDuration > 0 && r.cfg.OnMaxDuration != nil {
		s.timer = time.AfterFunc(r.cfg.MaxDuration, r.cfg.OnMaxDuration)
	}
	r.active = s
	return s, nil
}

// CaptureSession is one in-progress capture. Stop returns the finite PCM
// buffer; Cancel discards it. Both are prompt and idempotent.
type CaptureSession struct {
	recorder *Recorder
	device   CaptureDevice
	timer    *time.Timer

	mu   sync.Mutex
	pcm  []byte
	done bool
}

func (s *CaptureSession) onData(data []byte, _ uint32) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.pcm = append(s.pcm, data...)
	s.mu.Unlock()

	if cb := s.recorder.cfg.OnLevel; cb != nil && len(data) > 1 {
		cb(rmsLevel(data))
	}
}

func (s *CaptureSession) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// finish tears down the device side exactly once.
func (s *CaptureSession) finish() []byte {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	pcm := s.pcm
	s.pcm = nil
	s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.device.Stop()
	s.device.ClearCallback()
	return pcm
}

// Stop ends the capture and returns the buffer, or nil when the capture was
// too short to mean anything.
func (s *CaptureSession) Stop() ([]byte, error) {
	pcm := s.finish()
	if uint64(len(pcm)/2) < minCaptureFrames {
		return nil, nil
	}
	return pcm, nil
}

// Cancel ends the capture and discards the buffer.
func (s *CaptureSession) Cancel() {
	s.finish()
}

// Duration reports the captured length so far.
func (s *CaptureSession) Duration(sampleRate uint32) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := len(s.pcm) / 2
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

func rmsLevel(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
