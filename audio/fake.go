package audio

import "sync"

const fakeChunkBytes = 2048 // 1024 frames of 16-bit mono

// FakeCapture delivers the whole canned buffer to the callback on Start.
type FakeCapture struct {
	pcm []byte

	mu      sync.Mutex
	cb      DataCallback
	started bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	cb := f.cb
	f.started = true
	f.mu.Unlock()
	if cb == nil {
		return nil
	}
	for pos := 0; pos < len(f.pcm); pos += fakeChunkBytes {
		end := min(pos+fakeChunkBytes, len(f.pcm))
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/2))
	}
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) DeviceName() string { return "fake" }
