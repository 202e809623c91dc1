package core

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // Pulse-code modulation format.
	ULAW                            // µ-law encoding format.
	ALAW                            // A-law encoding format.
)

// AudioBuffer holds one synthesized sentence worth of audio. It is owned by
// the playback sequencer from creation until playback completes, after which
// Release frees the sample storage.
type AudioBuffer struct {
	SequenceIndex int
	Data          []byte // Raw audio samples.
	SampleRate    int
	Channels      int
	Format        AudioEncodingFormat
	SourceText    string // Cleaned text this buffer was synthesized from.
}

func (b *AudioBuffer) DurationSeconds() float64 {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2 // 16-bit audio
	if b.Format != PCM {
		bytesPerSample = 1 // g711 formats carry one byte per sample
	}
	totalSamples := len(b.Data) / (bytesPerSample * b.Channels)
	return float64(totalSamples) / float64(b.SampleRate)
}

// Release frees the transient sample storage. The buffer must not be played
// after release.
func (b *AudioBuffer) Release() {
	b.Data = nil
}
