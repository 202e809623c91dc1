package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbuddy/core"
)

type playRecord struct {
	seq   int
	start time.Time
	end   time.Time
}

type fakePlayer struct {
	mu      sync.Mutex
	records []playRecord
	delay   time.Duration
	failSeq map[int]bool // sequence indices whose playback errors
}

func (f *fakePlayer) Play(buf *core.AudioBuffer, blocking bool) error {
	start := time.Now()
	time.Sleep(f.delay)
	if f.failSeq[buf.SequenceIndex] {
		return errors.New("device busy")
	}
	f.mu.Lock()
	f.records = append(f.records, playRecord{seq: buf.SequenceIndex, start: start, end: time.Now()})
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) WaitUntilIdle() error { return nil }

func (f *fakePlayer) sequences() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.records))
	for i, r := range f.records {
		out[i] = r.seq
	}
	return out
}

func buffer(seq int) *core.AudioBuffer {
	return &core.AudioBuffer{
		SequenceIndex: seq,
		Data:          make([]byte, 160),
		SampleRate:    16000,
		Channels:      1,
		Format:        core.PCM,
	}
}

func TestSubmitPlaysInOrderWithoutOverlap(t *testing.T) {
	player := &fakePlayer{delay: 5 * time.Millisecond}
	seq := NewSequencer(player, nil, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, seq.Submit(ctx, buffer(i)))
	}
	seq.Drain()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, player.sequences())
	for i := 1; i < len(player.records); i++ {
		assert.False(t, player.records[i].start.Before(player.records[i-1].end),
			"unit %d started before unit %d finished", i, i-1)
	}
}

func TestFailedUnitDoesNotStopTheRest(t *testing.T) {
	player := &fakePlayer{failSeq: map[int]bool{2: true}}
	seq := NewSequencer(player, nil, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, seq.Submit(ctx, buffer(i)))
	}
	seq.Drain()

	assert.Equal(t, []int{0, 1, 3, 4}, player.sequences())
}

func TestFallbackIsTriedOncePerBuffer(t *testing.T) {
	primary := &fakePlayer{failSeq: map[int]bool{1: true}}
	fallback := &fakePlayer{}
	seq := NewSequencer(primary, fallback, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, seq.Submit(ctx, buffer(i)))
	}
	seq.Drain()

	assert.Equal(t, []int{0, 2}, primary.sequences())
	assert.Equal(t, []int{1}, fallback.sequences())
}

func TestSubmitBlocksUntilPreviousFinishes(t *testing.T) {
	player := &fakePlayer{delay: 30 * time.Millisecond}
	seq := NewSequencer(player, nil, nil)

	ctx := context.Background()
	require.NoError(t, seq.Submit(ctx, buffer(0)))
	start := time.Now()
	require.NoError(t, seq.Submit(ctx, buffer(1)))
	waited := time.Since(start)

	assert.GreaterOrEqual(t, waited, 20*time.Millisecond,
		"second submit must wait for the first playback")
	seq.Drain()
}

func TestCancelledSubmitDiscardsBufferButFinishesCurrent(t *testing.T) {
	player := &fakePlayer{delay: 30 * time.Millisecond}
	seq := NewSequencer(player, nil, nil)

	require.NoError(t, seq.Submit(context.Background(), buffer(0)))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := seq.Submit(cancelled, buffer(1))
	require.ErrorIs(t, err, context.Canceled)

	seq.Drain()
	assert.Equal(t, []int{0}, player.sequences(), "in-flight unit still plays to completion")
}

func TestDrainOnEmptySequencer(t *testing.T) {
	seq := NewSequencer(&fakePlayer{}, nil, nil)
	seq.Drain() // must not panic or block
}
