package media

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// ---------------------------------------------------------------------------
// WAV container framing
// The speech API returns raw little-endian PCM with no header; playback
// needs a fully self-describing container. The 44-byte RIFF/WAVE header
// written here is bit-exact to the WAV specification (format code 1).
// ---------------------------------------------------------------------------

const wavHeaderSize = 44

// SpeechSampleRate is the fixed sample rate of provider TTS output:
// 24 kHz, mono, 16-bit.
const (
	SpeechSampleRate = 24000
	SpeechChannels   = 1
	SpeechBitDepth   = 16
)

// WrapPCM frames raw PCM bytes into a WAV container.
func WrapPCM(pcm []byte, sampleRate, numChannels, bitsPerSample int) []byte {
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(pcm)
	fileSize := 36 + dataSize

	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(fileSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	copy(buf[wavHeaderSize:], pcm)
	return buf
}

// DecodeBase64 decodes a standard-alphabet base64 payload, tolerating the
// whitespace some providers embed in long inline blobs.
func DecodeBase64(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(cleaned)
}
