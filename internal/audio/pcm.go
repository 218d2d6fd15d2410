// Package audio decodes raw PCM speech and plays it through a system
// audio player.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultSampleRate is the rate speech backends deliver PCM at.
const DefaultSampleRate = 24000

// ErrOddPCM is returned when PCM data does not hold whole 16-bit samples.
var ErrOddPCM = errors.New("pcm data has an odd number of bytes")

// Buffer is mono audio with samples normalised to [-1.0, 1.0].
type Buffer struct {
	SampleRate int
	Samples    []float32
}

// DecodePCM decodes base64 encoded 16-bit little-endian mono PCM.
func DecodePCM(pcmBase64 string, sampleRate int) (*Buffer, error) {
	data, err := base64.StdEncoding.DecodeString(pcmBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	return DecodePCMBytes(data, sampleRate)
}

// DecodePCMBytes converts raw 16-bit little-endian mono PCM.
func DecodePCMBytes(data []byte, sampleRate int) (*Buffer, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddPCM
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return &Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

// Duration is the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// WAV encodes the buffer as a 16-bit mono RIFF file.
func (b *Buffer) WAV() []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataLen := len(b.Samples) * 2
	byteRate := b.SampleRate * channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(b.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))

	for _, s := range b.Samples {
		binary.Write(&buf, binary.LittleEndian, toInt16(s))
	}
	return buf.Bytes()
}

func toInt16(s float32) int16 {
	v := math.Round(float64(s) * 32768.0)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	}
	if v < math.MinInt16 {
		v = math.MinInt16
	}
	return int16(v)
}
