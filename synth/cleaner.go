package synth

import (
	"regexp"
	"strings"
)

// DefaultMaxChars caps the text handed to the synthesis engine. Overlong
// input can stall or crash the engine, so text is cut at the last sentence
// boundary before the cap.
const DefaultMaxChars = 500

// minBoundaryCut is the earliest position a sentence-boundary truncation is
// accepted; below it a hard cut with an appended period is used instead.
const minBoundaryCut = 200

var (
	markdownEmphasisRegex = regexp.MustCompile(`\*+|__|~~|` + "`")
	markdownHeadingRegex  = regexp.MustCompile(`#+\s*`)
	markdownLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	inlineCodeRegex       = regexp.MustCompile("`[^`]*`")
	emojiRegex            = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}]`)
	multipleSpacesRegex   = regexp.MustCompile(`\s+`)
)

// Cleaner strips formatting that trips up speech synthesis and bounds the
// text length.
type Cleaner struct {
	MaxChars int
}

func NewCleaner(maxChars int) *Cleaner {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Cleaner{MaxChars: maxChars}
}

// Clean prepares text for the synthesis engine. Returns "" when nothing
// speakable remains.
func (c *Cleaner) Clean(text string) string {
	text = inlineCodeRegex.ReplaceAllString(text, "")
	text = markdownLinkRegex.ReplaceAllString(text, "$1")
	text = markdownEmphasisRegex.ReplaceAllString(text, "")
	text = markdownHeadingRegex.ReplaceAllString(text, "")
	text = emojiRegex.ReplaceAllString(text, "")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return c.truncate(text)
}

func (c *Cleaner) truncate(text string) string {
	if len(text) <= c.MaxChars {
		return text
	}
	if idx := strings.LastIndex(text[:c.MaxChars], "."); idx > minBoundaryCut {
		return text[:idx+1]
	}
	return text[:c.MaxChars] + "."
}
