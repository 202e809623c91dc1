package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentAllGrouping(t *testing.T) {
	units := SegmentAll("Hello world. How are you? Great!", 2)

	require.Len(t, units, 2)
	assert.Equal(t, "Hello world. How are you?", units[0].Text)
	assert.Equal(t, 0, units[0].SequenceIndex)
	assert.False(t, units[0].Final)
	assert.Equal(t, "Great!", units[1].Text)
	assert.Equal(t, 1, units[1].SequenceIndex)
	assert.True(t, units[1].Final)
}

func TestSegmentAllDeterministic(t *testing.T) {
	const text = "One. Two! Three? Four."
	first := SegmentAll(text, 1)
	second := SegmentAll(text, 1)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].SequenceIndex, second[i].SequenceIndex)
		assert.Equal(t, first[i].Final, second[i].Final)
	}
}

func TestPushAcrossFragmentBoundaries(t *testing.T) {
	s := NewSegmenter(1)

	var units []string
	for _, frag := range []string{"Hel", "lo there", ". Second sen", "tence. Tail"} {
		for _, u := range s.Push(frag) {
			units = append(units, u.Text)
		}
	}
	require.Equal(t, []string{"Hello there.", "Second sentence."}, units)

	flushed := s.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, "Tail", flushed[0].Text)
	assert.True(t, flushed[0].Final)
	assert.Equal(t, 2, flushed[0].SequenceIndex)
}

func TestPunctuationMidTokenIsNotABoundary(t *testing.T) {
	s := NewSegmenter(1)

	units := s.Push("Version 3.14 is out. Neat")
	require.Len(t, units, 1)
	assert.Equal(t, "Version 3.14 is out.", units[0].Text)
}

func TestFlushWithEmptyRemainderMarksLastUnitFinal(t *testing.T) {
	s := NewSegmenter(1)

	units := s.Push("Done. ")
	require.Len(t, units, 1)
	assert.False(t, units[0].Final)

	flushed := s.Flush()
	assert.Empty(t, flushed)
	assert.True(t, units[0].Final, "flush must promote the last emitted unit in place")
}

func TestFlushCombinesPendingGroupWithRemainder(t *testing.T) {
	s := NewSegmenter(3)

	units := s.Push("First. Second. And a tail")
	assert.Empty(t, units, "group of three not yet full")

	flushed := s.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, "First. Second. And a tail", flushed[0].Text)
	assert.True(t, flushed[0].Final)
}

func TestEmptyStreamFlushesToNothing(t *testing.T) {
	s := NewSegmenter(2)
	assert.Empty(t, s.Push(""))
	assert.Empty(t, s.Flush())
}

func TestIndicesAreContiguous(t *testing.T) {
	units := SegmentAll("A. B. C. D. E.", 2)
	for i, u := range units {
		assert.Equal(t, i, u.SequenceIndex)
	}
}
