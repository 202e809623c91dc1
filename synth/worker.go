// Package synth wraps a non-reentrant speech synthesis engine behind a
// serialized worker: one sentence in, one audio buffer out.
package synth

import (
	"context"
	"sync"

	"podbuddy/core"
)

// Engine is the supplied synthesis capability. Implementations are NOT safe
// for concurrent use; every call path must go through a Worker.
type Engine interface {
	SynthesizeToBuffer(ctx context.Context, text string) (*core.AudioBuffer, error)
}

// Worker serializes access to the engine. Backlog stays naturally bounded at
// one because the orchestrator only issues the next synthesis after admitting
// the previous one; the mutex is a mutual-exclusion region, not a queue.
type Worker struct {
	mu      sync.Mutex
	engine  Engine
	cleaner *Cleaner
	logger  *core.Logger
}

func NewWorker(engine Engine, cleaner *Cleaner, logger *core.Logger) *Worker {
	if cleaner == nil {
		cleaner = NewCleaner(DefaultMaxChars)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Worker{
		engine:  engine,
		cleaner: cleaner,
		logger:  logger.With(map[string]interface{}{"component": "synth"}),
	}
}

// Synthesize converts one sentence unit into one audio buffer. Failures are
// returned as *core.SynthesisError tagged with the offending text; the caller
// treats them as non-fatal and skips the unit.
func (w *Worker) Synthesize(ctx context.Context, unit *core.SentenceUnit) (*core.AudioBuffer, error) {
	clean := w.cleaner.Clean(unit.Text)
	if clean == "" {
		return nil, &core.SynthesisError{Text: unit.Text}
	}

	w.mu.Lock()
	buf, err := w.engine.SynthesizeToBuffer(ctx, clean)
	w.mu.Unlock()

	if err != nil {
		return nil, &core.SynthesisError{Text: unit.Text, Err: err}
	}
	buf.SequenceIndex = unit.SequenceIndex
	buf.SourceText = clean
	return buf, nil
}

// Warmup runs one tiny synthesis through the same mutual-exclusion region so
// model loading happens before the first real turn.
func (w *Worker) Warmup(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	buf, err := w.engine.SynthesizeToBuffer(ctx, "Hello.")
	if err != nil {
		return err
	}
	buf.Release()
	w.logger.Info("synthesis engine warmed up")
	return nil
}
