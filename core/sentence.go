package core

// SentenceUnit is one sentence-sized chunk of model output, produced by the
// segmenter and consumed exactly once by the synthesis worker. Units travel
// by pointer so the segmenter can mark the last emitted unit final when the
// stream ends without a trailing remainder.
type SentenceUnit struct {
	Text          string
	SequenceIndex int
	Final         bool
}
