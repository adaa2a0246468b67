package audio

import (
	"encoding/binary"
	"io"
	"os"
)

const wavHeaderSize = 44

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) []byte {
	out := make([]byte, 0, wavHeaderSize+len(pcm))
	out = append(out, wavHeader(len(pcm), sampleRate)...)
	return append(out, pcm...)
}

// WriteWAVPCM16LEFile writes raw PCM16LE mono audio bytes as a WAV file.
// Used to stage utterances for CLI transcribers.
func WriteWAVPCM16LEFile(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeWAV(f, pcm, sampleRate); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeWAV(out io.Writer, pcm []byte, sampleRate int) error {
	if _, err := out.Write(wavHeader(len(pcm), sampleRate)); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

func wavHeader(dataSize, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	h := make([]byte, wavHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], audioFormat)
	binary.LittleEndian.PutUint16(h[22:24], numChannels)
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	return h
}
