package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// EncodePCM compresses a finished PCM buffer to FLAC. Providers accept it
// directly and uploads shrink to roughly half the raw size.
func EncodePCM(pcm []byte) ([]byte, error) {
	var out bytes.Buffer
	enc, err := flac.NewEncoder(&out, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	samples := BytesToSamples(pcm)
	for start := 0; start < len(samples); start += BlockSize {
		end := min(start+BlockSize, len(samples))
		if err := writeBlock(enc, samples[start:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flac close: %w", err)
	}
	return out.Bytes(), nil
}

func writeBlock(enc *flac.Encoder, block []int16) error {
	widened := make([]int32, len(block))
	for i, s := range block {
		widened[i] = int32(s)
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   widened,
			NSamples:  len(block),
		}},
	}
	if err := enc.WriteFrame(f); err != nil {
		return fmt.Errorf("flac frame: %w", err)
	}
	return nil
}
