// Package playback plays synthesized audio buffers exactly once, in emission
// order, without overlap, while letting synthesis of the next sentence run
// behind playback of the current one.
package playback

import (
	"context"

	"podbuddy/core"
)

// Player is the supplied playback capability.
type Player interface {
	// Play starts playback of a buffer. With blocking=true it returns when
	// playback finishes; otherwise it returns once playback has been issued.
	Play(buf *core.AudioBuffer, blocking bool) error
	// WaitUntilIdle blocks until any non-blocking playback has finished.
	WaitUntilIdle() error
}

type slot struct {
	buf  *core.AudioBuffer
	done chan struct{}
}

// Sequencer admits buffers in strictly increasing sequence order (guaranteed
// by the orchestrator) and holds the pipeline to at most two in-flight units:
// the one playing and the one the caller is synthesizing. Submitting blocks
// until the previous playback completes, which is the explicit
// synchronization point bounding how far ahead synthesis may run.
type Sequencer struct {
	player   Player
	fallback Player // tried once per buffer when the primary fails
	logger   *core.Logger
	current  *slot
}

func NewSequencer(player, fallback Player, logger *core.Logger) *Sequencer {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Sequencer{
		player:   player,
		fallback: fallback,
		logger:   logger.With(map[string]interface{}{"component": "playback"}),
	}
}

// Submit waits for the previous buffer to finish playing, releases it, then
// starts non-blocking playback of buf. A cancelled context discards buf
// without playing it, but never interrupts the buffer already playing.
func (s *Sequencer) Submit(ctx context.Context, buf *core.AudioBuffer) error {
	if s.current != nil {
		select {
		case <-s.current.done:
		case <-ctx.Done():
			buf.Release()
			return ctx.Err()
		}
		s.current.buf.Release()
		s.current = nil
	}

	if err := ctx.Err(); err != nil {
		buf.Release()
		return err
	}

	sl := &slot{buf: buf, done: make(chan struct{})}
	go func() {
		defer close(sl.done)
		s.play(buf)
	}()
	s.current = sl
	return nil
}

// play runs one buffer to completion, falling back once on failure. When the
// fallback also fails the buffer is treated as played so the pipeline never
// blocks indefinitely.
func (s *Sequencer) play(buf *core.AudioBuffer) {
	err := s.player.Play(buf, true)
	if err == nil {
		return
	}
	s.logger.Warn("playback failed, trying fallback", "seq", buf.SequenceIndex, "error", err)
	if s.fallback != nil {
		if fbErr := s.fallback.Play(buf, true); fbErr == nil {
			return
		} else {
			err = fbErr
		}
	}
	s.logger.Error("all playback mechanisms failed, proceeding", "seq", buf.SequenceIndex, "error", err)
}

// Drain blocks until the in-flight buffer finishes and releases it. Called on
// stream end and on cancellation; the playing unit is always allowed to
// finish.
func (s *Sequencer) Drain() {
	if s.current == nil {
		return
	}
	<-s.current.done
	s.current.buf.Release()
	s.current = nil
}
