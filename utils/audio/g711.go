package audio

import (
	"errors"

	"github.com/zaf/g711"

	"podbuddy/core"
)

// PCMBytesToULaw converts 16-bit PCM bytes to 8-bit µ-law per ITU-T G.711.
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("g711: PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts 8-bit µ-law bytes back to 16-bit PCM.
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// PCMBytesToALaw converts 16-bit PCM bytes to 8-bit A-law per ITU-T G.711.
func PCMBytesToALaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("g711: PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeAlaw(pcm), nil
}

// ALawBytesToPCM converts 8-bit A-law bytes back to 16-bit PCM.
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// CompandBuffer returns a copy of a PCM buffer companded to the target G.711
// format, halving the frame size for transport. Non-PCM buffers pass through
// unchanged when already in the target format.
func CompandBuffer(buf *core.AudioBuffer, target core.AudioEncodingFormat) (*core.AudioBuffer, error) {
	if buf.Format == target {
		return buf, nil
	}
	if buf.Format != core.PCM {
		return nil, errors.New("g711: companding requires a PCM source buffer")
	}

	var data []byte
	var err error
	switch target {
	case core.ULAW:
		data, err = PCMBytesToULaw(buf.Data)
	case core.ALAW:
		data, err = PCMBytesToALaw(buf.Data)
	default:
		return nil, errors.New("g711: unsupported target format")
	}
	if err != nil {
		return nil, err
	}

	return &core.AudioBuffer{
		SequenceIndex: buf.SequenceIndex,
		Data:          data,
		SampleRate:    buf.SampleRate,
		Channels:      buf.Channels,
		Format:        target,
		SourceText:    buf.SourceText,
	}, nil
}
