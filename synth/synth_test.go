package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbuddy/core"
)

func TestCleanStripsMarkdown(t *testing.T) {
	c := NewCleaner(0)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"emphasis", "This is **really** _important_", "This is really _important_"},
		{"bold and code", "Use `go test` to *verify*", "Use to verify"},
		{"heading", "## Big News\nIt happened", "Big News It happened"},
		{"link keeps label", "Read [the docs](https://example.com) first", "Read the docs first"},
		{"emoji", "Great job \U0001F680 team", "Great job team"},
		{"whitespace collapse", "too   many\n\nspaces", "too many spaces"},
		{"plain text untouched", "Nothing to clean here.", "Nothing to clean here."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Clean(tc.in))
		})
	}
}

func TestCleanEmptyResult(t *testing.T) {
	c := NewCleaner(0)
	assert.Equal(t, "", c.Clean("`only code`"))
	assert.Equal(t, "", c.Clean("   "))
}

func TestTruncateAtSentenceBoundary(t *testing.T) {
	c := NewCleaner(0)

	head := strings.Repeat("a", 300) + "."
	text := head + " " + strings.Repeat("b", 400)
	out := c.Clean(text)
	assert.Equal(t, head, out)
}

func TestTruncateHardCutWhenBoundaryTooEarly(t *testing.T) {
	c := NewCleaner(0)

	// Only boundary is before the minimum cut position.
	text := "Short." + strings.Repeat("x", 600)
	out := c.Clean(text)
	assert.Len(t, out, DefaultMaxChars+1)
	assert.True(t, strings.HasSuffix(out, "."))
}

type fakeEngine struct {
	mu      sync.Mutex
	busy    atomic.Bool
	overlap atomic.Bool
	calls   []string
	err     error
}

func (f *fakeEngine) SynthesizeToBuffer(ctx context.Context, text string) (*core.AudioBuffer, error) {
	if !f.busy.CompareAndSwap(false, true) {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	f.busy.Store(false)
	if f.err != nil {
		return nil, f.err
	}
	return &core.AudioBuffer{
		Data:       make([]byte, 320),
		SampleRate: 16000,
		Channels:   1,
		Format:     core.PCM,
	}, nil
}

func TestSynthesizeTagsBuffer(t *testing.T) {
	engine := &fakeEngine{}
	w := NewWorker(engine, nil, nil)

	buf, err := w.Synthesize(context.Background(), &core.SentenceUnit{
		Text:          "Hello **there**.",
		SequenceIndex: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, buf.SequenceIndex)
	assert.Equal(t, "Hello there.", buf.SourceText)
	assert.Equal(t, []string{"Hello there."}, engine.calls)
}

func TestSynthesizeUnspeakableUnit(t *testing.T) {
	w := NewWorker(&fakeEngine{}, nil, nil)

	_, err := w.Synthesize(context.Background(), &core.SentenceUnit{Text: "`code`"})
	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "`code`", synthErr.Text)
}

func TestSynthesizeWrapsEngineError(t *testing.T) {
	boom := errors.New("engine down")
	w := NewWorker(&fakeEngine{err: boom}, nil, nil)

	_, err := w.Synthesize(context.Background(), &core.SentenceUnit{Text: "Say this."})
	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "Say this.", synthErr.Text)
	assert.ErrorIs(t, err, boom)
}

func TestWarmupRunsThroughEngine(t *testing.T) {
	engine := &fakeEngine{}
	w := NewWorker(engine, nil, nil)

	require.NoError(t, w.Warmup(context.Background()))
	assert.Equal(t, []string{"Hello."}, engine.calls)
}

func TestWarmupPropagatesEngineError(t *testing.T) {
	w := NewWorker(&fakeEngine{err: errors.New("not loaded")}, nil, nil)
	assert.Error(t, w.Warmup(context.Background()))
}

func TestConcurrentSynthesisIsSerialized(t *testing.T) {
	engine := &fakeEngine{}
	w := NewWorker(engine, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Synthesize(context.Background(), &core.SentenceUnit{
				Text:          "Sentence number one.",
				SequenceIndex: i,
			})
		}(i)
	}
	wg.Wait()

	assert.False(t, engine.overlap.Load(), "engine must never see concurrent calls")
	assert.Len(t, engine.calls, 8)
}
