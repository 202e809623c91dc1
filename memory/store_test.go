package memory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	return NewStore(path, nil), path
}

func TestExtractOpinions(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"i think", "I think Go is great for this", true},
		{"i hate", "honestly I hate meetings", true},
		{"i prefer", "I prefer tea over coffee", true},
		{"i disagree", "Well, I disagree with that take", true},
		{"no marker", "The weather is nice today", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := tempStore(t)
			assert.Equal(t, tc.want, s.ExtractOpinions(tc.text, "testing"))
		})
	}
}

func TestPersistenceAcrossLoads(t *testing.T) {
	s, path := tempStore(t)
	s.RecordTopic("rust vs go")
	s.RecordOpinion("rust vs go", "I prefer Go")
	s.SetPreference("style", "casual")
	s.IncrementSession()

	reloaded := NewStore(path, nil)
	assert.Equal(t, 1, reloaded.SessionCount())
	assert.Equal(t, "casual", reloaded.GetPreference("style", ""))
	assert.Contains(t, reloaded.ContextSummary(), "rust vs go")
}

func TestGetPreferenceFallback(t *testing.T) {
	s, _ := tempStore(t)
	assert.Equal(t, "default", s.GetPreference("missing", "default"))
}

func TestContextSummaryShape(t *testing.T) {
	s, _ := tempStore(t)
	assert.Equal(t, "", s.ContextSummary(), "fresh store has nothing to say")

	s.RecordTopic("ai safety")
	s.RecordOpinion("ai safety", "I think it matters")
	s.IncrementSession()

	summary := s.ContextSummary()
	assert.Contains(t, summary, "Recently discussed topics: ai safety")
	assert.Contains(t, summary, "User opinions: ai safety: I think it matters")
	assert.Contains(t, summary, "conversation session #2")
}

func TestContextSummaryKeepsOnlyRecentEntries(t *testing.T) {
	s, _ := tempStore(t)
	for i := 0; i < 8; i++ {
		s.RecordTopic(topicName(i))
	}
	summary := s.ContextSummary()
	assert.NotContains(t, summary, topicName(0))
	assert.Contains(t, summary, topicName(7))
}

func topicName(i int) string {
	return "topic-" + string(rune('a'+i))
}

func TestRetentionCap(t *testing.T) {
	s, path := tempStore(t)
	for i := 0; i < keepLast+20; i++ {
		s.RecordTopic("t")
	}
	require.Len(t, s.data.TopicsDiscussed, keepLast)

	reloaded := NewStore(path, nil)
	assert.Len(t, reloaded.data.TopicsDiscussed, keepLast)
}
