// Package encoder compresses finished PCM buffers for upload. Capture is
// fixed at 16kHz mono S16, which every transcription provider accepts.
package encoder

import "encoding/binary"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// BytesToSamples reinterprets little-endian S16 PCM bytes as samples.
func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// WAV wraps raw PCM in a canonical 44-byte RIFF header, for tools that
// refuse bare PCM.
func WAV(pcm []byte) []byte {
	const headerSize = 44
	dataLen := uint32(len(pcm))
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)
	blockAlign := uint16(Channels * BitsPerSample / 8)

	out := make([]byte, headerSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], 36+dataLen)
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:], Channels)
	binary.LittleEndian.PutUint32(out[24:], SampleRate)
	binary.LittleEndian.PutUint32(out[28:], byteRate)
	binary.LittleEndian.PutUint16(out[32:], blockAlign)
	binary.LittleEndian.PutUint16(out[34:], BitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:], dataLen)
	copy(out[headerSize:], pcm)
	return out
}
