package research

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByEngagement(t *testing.T) {
	ranked := Rank([]Topic{
		{Title: "quiet", Score: 10, Comments: 0},
		{Title: "loud", Score: 50, Comments: 100}, // 50 + 200
		{Title: "mid", Score: 100, Comments: 10},  // 100 + 20
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "loud", ranked[0].Title)
	assert.Equal(t, "mid", ranked[1].Title)
	assert.Equal(t, "quiet", ranked[2].Title)
}

func TestRankDeduplicatesSimilarTitles(t *testing.T) {
	long := "A very long headline about artificial intelligence taking over datacenters"
	ranked := Rank([]Topic{
		{Title: long + " today", Score: 100},
		{Title: long + " tomorrow", Score: 50}, // same first 50 chars
		{Title: "Something else entirely", Score: 10},
	})

	require.Len(t, ranked, 2)
	assert.Equal(t, long+" today", ranked[0].Title)
	assert.Equal(t, "Something else entirely", ranked[1].Title)
}

func TestRankKeepsTopFive(t *testing.T) {
	var topics []Topic
	for i := 0; i < 12; i++ {
		topics = append(topics, Topic{Title: topicTitle(i), Score: i})
	}
	ranked := Rank(topics)
	require.Len(t, ranked, 5)
	assert.Equal(t, topicTitle(11), ranked[0].Title)
}

func topicTitle(i int) string {
	return "headline number " + string(rune('a'+i))
}

func TestTopicCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.json")
	topics := []Topic{{Title: "cached topic", Source: "hackernews", Score: 42}}

	require.NoError(t, SaveTopics(path, topics))

	loaded, ok := LoadTopics(path, time.Hour)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "cached topic", loaded[0].Title)
}

func TestTopicCacheExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.json")
	require.NoError(t, SaveTopics(path, []Topic{{Title: "stale"}}))

	_, ok := LoadTopics(path, 0)
	assert.False(t, ok)
}

func TestTopicCacheMissingFile(t *testing.T) {
	_, ok := LoadTopics(filepath.Join(t.TempDir(), "absent.json"), time.Hour)
	assert.False(t, ok)
}
