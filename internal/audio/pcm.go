package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeFloat32LE decodes base64 of 32-bit float little-endian samples, the
// wire format used by the client for microphone audio. Trailing bytes that do
// not form a whole sample are rejected rather than truncated.
func DecodeFloat32LE(encoded string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("audio payload length %d is not a whole number of float32 samples", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// EncodeFloat32LE is the outbound counterpart of DecodeFloat32LE.
func EncodeFloat32LE(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// Concat joins buffered chunks into one contiguous sample sequence,
// preserving chunk order.
func Concat(chunks [][]float32) []float32 {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Float32ToPCM16LE converts normalized float samples to 16-bit signed PCM,
// clipping out-of-range values. Used when handing audio to STT backends that
// speak linear16.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16LEToFloat32 converts 16-bit signed PCM back to normalized floats.
// An odd trailing byte is dropped.
func PCM16LEToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// RMS computes the root-mean-square level of a sample buffer; zero for an
// empty buffer.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
