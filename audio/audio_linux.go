//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// Software gain applied on top of the stream volume. Laptop microphones
// tend to come in quiet and providers transcribe boosted audio better.
const (
	captureGain        = 8
	captureVolumeBoost = 3
)

type pulseBackend struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: client}, nil
}

func (b *pulseBackend) Devices() ([]DeviceInfo, error) {
	sources, err := b.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (b *pulseBackend) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{client: b.client, device: device, config: config}, nil
}

func (b *pulseBackend) Close() {
	b.client.Close()
}

// pulseCapture opens the record stream lazily on Start so a swapped-in
// device costs nothing until a session actually uses it.
type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			vol := uint32(proto.VolumeNorm) * captureVolumeBoost
			r.ChannelVolumes = proto.ChannelVolumes{vol}
		}),
	}
	if c.device != nil {
		if source, err := c.client.SourceByID(c.device.ID); err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := c.client.NewRecord(pulse.Int16Writer(c.consume), opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	c.stream = stream
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		stream.Start()
		<-stop
		stream.Stop()
		stream.Close()
	}(c.stop, c.done)

	return nil
}

// consume boosts, clamps, and repacks one chunk for the registered callback.
func (c *pulseCapture) consume(buf []int16) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	cb := c.callback.Load()
	if cb == nil {
		return len(buf), nil
	}
	data := make([]byte, len(buf)*2)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplify(s)))
	}
	(*cb)(data, uint32(len(buf)))
	return len(buf), nil
}

func amplify(s int16) int16 {
	boosted := int32(s) * captureGain
	if boosted > 32767 {
		return 32767
	}
	if boosted < -32768 {
		return -32768
	}
	return int16(boosted)
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return
	}
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
