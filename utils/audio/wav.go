// Package audio holds the small amount of wire-format plumbing the pipeline
// needs: WAV framing for engine responses and file playback, and G.711
// companding for compact transport frames.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"

	"podbuddy/core"
)

const (
	bitsPerSample  = 16
	audioFormatPCM = 1
	fmtChunkSize   = 16
)

// EncodeWAV wraps a PCM AudioBuffer in a RIFF/WAVE container.
func EncodeWAV(buf *core.AudioBuffer) ([]byte, error) {
	if buf.Format != core.PCM {
		return nil, errors.New("wav: only PCM buffers can be encoded")
	}
	if len(buf.Data) == 0 {
		return nil, errors.New("wav: buffer is empty")
	}
	channels := buf.Channels
	if channels <= 0 || channels > 2 {
		return nil, errors.New("wav: only mono or stereo supported")
	}
	if buf.SampleRate <= 0 {
		return nil, errors.New("wav: sample rate must be positive")
	}
	if len(buf.Data)%(2*channels) != 0 {
		return nil, errors.New("wav: PCM length does not match channel count")
	}

	blockAlign := channels * bitsPerSample / 8
	byteRate := buf.SampleRate * blockAlign
	dataSize := len(buf.Data)

	out := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	out.WriteString("RIFF")
	binary.Write(out, binary.LittleEndian, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(out, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(out, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(out, binary.LittleEndian, uint16(channels))
	binary.Write(out, binary.LittleEndian, uint32(buf.SampleRate))
	binary.Write(out, binary.LittleEndian, uint32(byteRate))
	binary.Write(out, binary.LittleEndian, uint16(blockAlign))
	binary.Write(out, binary.LittleEndian, uint16(bitsPerSample))

	out.WriteString("data")
	binary.Write(out, binary.LittleEndian, uint32(dataSize))
	out.Write(buf.Data)

	return out.Bytes(), nil
}

// DecodeWAV parses a RIFF/WAVE container into a PCM AudioBuffer. Subchunks
// other than fmt and data are skipped.
func DecodeWAV(data []byte) (*core.AudioBuffer, error) {
	if len(data) < 12 ||
		!bytes.HasPrefix(data, []byte("RIFF")) ||
		!bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, errors.New("wav: not a RIFF/WAVE stream")
	}

	buf := &core.AudioBuffer{Format: core.PCM}
	haveFmt := false

	i := 12
	for i+8 <= len(data) {
		chunkID := string(data[i : i+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		body := i + 8
		next := body + chunkSize
		if next > len(data) {
			return nil, errors.New("wav: chunk exceeds buffer length")
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < fmtChunkSize {
				return nil, errors.New("wav: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != audioFormatPCM {
				return nil, errors.New("wav: only PCM format supported")
			}
			buf.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			buf.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("wav: data chunk before fmt chunk")
			}
			buf.Data = append([]byte(nil), data[body:next]...)
			return buf, nil
		}

		// Chunks are padded to an even boundary.
		if chunkSize%2 != 0 {
			next++
		}
		i = next
	}

	return nil, errors.New("wav: data chunk not found")
}
