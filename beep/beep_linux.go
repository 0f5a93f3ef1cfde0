//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	startSamples  []int16
	endSamples    []int16
	cancelSamples []int16
	errorSamples  []int16
	soundOnce     sync.Once
)

func initSound() {
	// 200ms tails give PulseAudio enough data to fill its buffer.
	startSamples = interleave(generateTick(sampleRate, startFreq, 0.2, startVolume, startDecay))
	endSamples = interleave(generateTick(sampleRate, endFreq, 0.2, endVolume, endDecay))
	cancelSamples = interleave(generateTick(sampleRate, cancelFreq, 0.2, cancelVolume, cancelDecay))
	errorSamples = interleave(generateDoubleBeep(sampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay))
}

// interleave widens mono samples to the stereo output sink format.
func interleave(mono []int16) []int16 {
	out := make([]int16, len(mono)*2)
	for i, s := range mono {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayStart() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(startSamples)
}

func PlayEnd() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(endSamples)
}

func PlayCancel() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(cancelSamples)
}

func PlayError() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(errorSamples)
}
