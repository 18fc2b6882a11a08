package audioio

import "time"

// Chunk is a frame of PCM16 audio.
type Chunk struct {
	// Samples contains little-endian PCM16 samples.
	Samples []int16

	// SampleRate of this chunk in Hz.
	SampleRate int

	// Channels in this chunk.
	Channels int
}

// Bytes returns the chunk as raw little-endian PCM16 bytes.
func (c *Chunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *Chunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Duration returns the playback time of this chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// FloatsToPCM16 converts float32 samples in [-1, 1) to int16.
// The conversion is a plain scale by 32768 with no clamping, matching
// the wire format the live session expects.
func FloatsToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, f := range in {
		out[i] = int16(f * 32768)
	}
	return out
}

// PCM16ToFloats converts int16 samples to float32 in [-1, 1).
func PCM16ToFloats(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
