package core

import (
	"errors"
	"fmt"
)

// Error taxonomy for the turn pipeline. None of these are fatal to the
// process: model errors are absorbed with a fallback utterance, synthesis and
// playback failures degrade output while the turn still completes.
var (
	// ErrModelUnavailable means the LLM backend refused the connection or is
	// not ready.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelTimeout means the token-stream wait exceeded the configured
	// wall-clock timeout.
	ErrModelTimeout = errors.New("model timeout")
	// ErrTransportDisconnect means the caller detached mid-turn; remaining
	// pipeline work is abandoned with no retry.
	ErrTransportDisconnect = errors.New("transport disconnected")
	// ErrTurnInFlight means RunTurn was called while another turn was active
	// on the same session.
	ErrTurnInFlight = errors.New("turn already in flight")
)

// SynthesisError tags a per-sentence synthesis failure with the offending
// text. The pipeline skips the sentence and continues.
type SynthesisError struct {
	Text string
	Err  error
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("synthesis failed for %q", e.Text)
	}
	return fmt.Sprintf("synthesis failed for %q: %v", e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// PlaybackError wraps a playback failure after the fallback mechanism was
// also attempted.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
