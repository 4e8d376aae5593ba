package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// ResamplePCM converts little-endian PCM16 between sample rates by linear
// interpolation. Equal or invalid rates return the input untouched.
func ResamplePCM(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(pcm) < 2 {
		return pcm
	}

	in := PCMBytesToInt16(pcm)
	step := float64(fromRate) / float64(toRate)
	n := int(math.Ceil(float64(len(in)) / step))
	out := make([]int16, n)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(math.Round(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac))
	}
	return Int16ToPCMBytes(out)
}

func PCMBytesToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

func Int16ToPCMBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// EncodeChunk renders samples as little-endian PCM16 in unwrapped standard
// base64, the encoding of every audio media chunk on the wire.
func EncodeChunk(samples []int16) string {
	return base64.StdEncoding.EncodeToString(Int16ToPCMBytes(samples))
}

func DecodeChunk(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, fmt.Errorf("decode chunk: empty input")
	}
	pcm, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("decode chunk: no samples")
	}
	return pcm, nil
}

// ScaleVolume applies a linear gain in place to little-endian PCM16.
func ScaleVolume(pcm []byte, volume float64) {
	if volume >= 1 {
		return
	}
	if volume < 0 {
		volume = 0
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(float64(s)*volume)))
	}
}

func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
