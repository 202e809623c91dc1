// Package segment turns a streamed sequence of text fragments into discrete
// sentence-sized units for the synthesis pipeline.
package segment

import (
	"strings"

	"podbuddy/core"
)

// A sentence boundary is a terminal punctuation mark followed by whitespace
// or end of input. No abbreviation or quote handling is attempted; the bare
// punctuation+whitespace match is authoritative.
func isTerminal(r byte) bool {
	return r == '.' || r == '!' || r == '?'
}

// Segmenter accumulates text fragments and emits SentenceUnits as boundaries
// are recognized. Group controls how many raw sentences are merged into one
// unit; higher values trade responsiveness for naturalness.
//
// A Segmenter is not safe for concurrent use; it belongs to the single turn
// in flight.
type Segmenter struct {
	group     int
	buf       strings.Builder
	scanned   int // prefix of buf already scanned for boundaries
	pending   []string
	nextIndex int
	last      *core.SentenceUnit
}

func NewSegmenter(group int) *Segmenter {
	if group < 1 {
		group = 1
	}
	return &Segmenter{group: group}
}

// Push appends one fragment and returns any units completed by it, in order.
func (s *Segmenter) Push(fragment string) []*core.SentenceUnit {
	if fragment == "" {
		return nil
	}
	s.buf.WriteString(fragment)
	return s.scan()
}

// scan walks the unscanned portion of the buffer looking for boundaries.
// Everything up to and including the punctuation becomes one raw sentence;
// the trailing whitespace is consumed but not kept.
func (s *Segmenter) scan() []*core.SentenceUnit {
	var out []*core.SentenceUnit
	text := s.buf.String()
	start := 0
	for i := s.scanned; i < len(text)-1; i++ {
		if isTerminal(text[i]) && isSpace(text[i+1]) {
			raw := strings.TrimSpace(text[start : i+1])
			start = i + 1
			if raw != "" {
				if unit := s.admitSentence(raw); unit != nil {
					out = append(out, unit)
				}
			}
		}
	}
	if start > 0 {
		remainder := text[start:]
		s.buf.Reset()
		s.buf.WriteString(remainder)
		s.scanned = 0
	} else {
		// The last byte stays unscanned: a terminal mark there is only a
		// boundary once the next fragment (or the flush) tells us what
		// follows it.
		if s.buf.Len() > 0 {
			s.scanned = s.buf.Len() - 1
		}
	}
	return out
}

// admitSentence adds one raw sentence to the pending group and emits a unit
// once the group is full.
func (s *Segmenter) admitSentence(raw string) *core.SentenceUnit {
	s.pending = append(s.pending, raw)
	if len(s.pending) < s.group {
		return nil
	}
	return s.emitPending(false)
}

func (s *Segmenter) emitPending(final bool) *core.SentenceUnit {
	text := strings.TrimSpace(strings.Join(s.pending, " "))
	s.pending = s.pending[:0]
	if text == "" {
		return nil
	}
	unit := &core.SentenceUnit{
		Text:          text,
		SequenceIndex: s.nextIndex,
		Final:         final,
	}
	s.nextIndex++
	s.last = unit
	return unit
}

// Flush ends the stream. A non-empty remainder (plus any pending grouped
// sentences) is emitted as the final unit. When the remainder is empty the
// previously emitted unit is marked final in place instead.
func (s *Segmenter) Flush() []*core.SentenceUnit {
	remainder := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	s.scanned = 0
	if remainder != "" {
		s.pending = append(s.pending, remainder)
	}
	if len(s.pending) > 0 {
		if unit := s.emitPending(true); unit != nil {
			return []*core.SentenceUnit{unit}
		}
	}
	if s.last != nil {
		s.last.Final = true
	}
	return nil
}

// SegmentAll segments a completed text in one call. Feeding the same text
// twice yields identical ordered sentence lists.
func SegmentAll(text string, group int) []*core.SentenceUnit {
	s := NewSegmenter(group)
	units := s.Push(text)
	units = append(units, s.Flush()...)
	return units
}

func isSpace(r byte) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
