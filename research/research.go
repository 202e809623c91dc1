// Package research gathers trending discussion topics from Hacker News and
// Reddit, ranks them and caches the result to a JSON file so the host has
// fresh material at session start.
package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"podbuddy/core"
)

const (
	hnSearchURL  = "https://hn.algolia.com/api/v1/search"
	redditTopURL = "https://www.reddit.com/r/%s/top.json"
	userAgent    = "podbuddy-research/1.0"

	topTopics = 5
)

// Topic is one ranked discussion candidate.
type Topic struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Source   string `json:"source"`
	Score    int    `json:"score"`
	Comments int    `json:"comments"`
	Summary  string `json:"summary,omitempty"`
}

// Rank orders candidates by engagement (score plus double weight on
// comments), drops near-duplicate titles and keeps the top few.
func Rank(topics []Topic) []Topic {
	sort.SliceStable(topics, func(i, j int) bool {
		return rankScore(topics[i]) > rankScore(topics[j])
	})
	seen := make(map[string]bool, len(topics))
	out := make([]Topic, 0, topTopics)
	for _, t := range topics {
		key := strings.ToLower(t.Title)
		if len(key) > 50 {
			key = key[:50]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == topTopics {
			break
		}
	}
	return out
}

func rankScore(t Topic) int {
	return t.Score + t.Comments*2
}

// Crawler fetches topic candidates from the configured sources.
type Crawler struct {
	client     *http.Client
	llm        core.LLMClient
	subreddits []string
	logger     *core.Logger
}

func NewCrawler(llm core.LLMClient, subreddits []string, logger *core.Logger) *Crawler {
	if logger == nil {
		logger = core.GetLogger()
	}
	if len(subreddits) == 0 {
		subreddits = []string{"technology", "programming"}
	}
	return &Crawler{
		client:     &http.Client{Timeout: 15 * time.Second},
		llm:        llm,
		subreddits: subreddits,
		logger:     logger.With(map[string]interface{}{"component": "research"}),
	}
}

// Fetch pulls candidates from every source, ranks them and optionally asks
// the model for a one-line summary per topic. Source failures are logged and
// skipped; Fetch only errors when every source failed.
func (c *Crawler) Fetch(ctx context.Context) ([]Topic, error) {
	var all []Topic

	hn, err := c.fetchHackerNews(ctx)
	if err != nil {
		c.logger.Warn("hacker news fetch failed", "error", err)
	} else {
		all = append(all, hn...)
	}

	for _, sub := range c.subreddits {
		rd, err := c.fetchReddit(ctx, sub)
		if err != nil {
			c.logger.Warn("reddit fetch failed", "subreddit", sub, "error", err)
			continue
		}
		all = append(all, rd...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("research: all sources failed")
	}

	ranked := Rank(all)
	if c.llm != nil {
		c.summarize(ctx, ranked)
	}
	c.logger.Info("research complete", "candidates", len(all), "kept", len(ranked))
	return ranked, nil
}

type hnResponse struct {
	Hits []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
	} `json:"hits"`
}

func (c *Crawler) fetchHackerNews(ctx context.Context) ([]Topic, error) {
	since := time.Now().Add(-24 * time.Hour).Unix()
	params := url.Values{}
	params.Set("query", "technology OR AI OR programming")
	params.Set("tags", "story")
	params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", since))
	params.Set("hitsPerPage", "20")

	body, err := c.get(ctx, hnSearchURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var resp hnResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("research: hn decode: %w", err)
	}
	topics := make([]Topic, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		if h.Title == "" {
			continue
		}
		topics = append(topics, Topic{
			Title:    h.Title,
			URL:      h.URL,
			Source:   "hackernews",
			Score:    h.Points,
			Comments: h.NumComments,
		})
	}
	return topics, nil
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Score       int    `json:"score"`
				NumComments int    `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *Crawler) fetchReddit(ctx context.Context, subreddit string) ([]Topic, error) {
	u := fmt.Sprintf(redditTopURL, subreddit) + "?t=week&limit=15"
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var resp redditResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("research: reddit decode: %w", err)
	}
	topics := make([]Topic, 0, len(resp.Data.Children))
	for _, ch := range resp.Data.Children {
		if ch.Data.Title == "" {
			continue
		}
		topics = append(topics, Topic{
			Title:    ch.Data.Title,
			URL:      ch.Data.URL,
			Source:   "reddit/" + subreddit,
			Score:    ch.Data.Score,
			Comments: ch.Data.NumComments,
		})
	}
	return topics, nil
}

func (c *Crawler) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// Reddit rejects default Go user agents with 429s.
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research: %s returned %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Crawler) summarize(ctx context.Context, topics []Topic) {
	for i := range topics {
		prompt := fmt.Sprintf(
			"In one casual sentence, explain what this headline is about: %q", topics[i].Title)
		summary, err := c.llm.Chat(ctx, []core.LLMMessage{
			{Role: core.LLMMessageRoleUser, Content: prompt},
		})
		if err != nil {
			c.logger.Warn("topic summary failed", "title", topics[i].Title, "error", err)
			continue
		}
		topics[i].Summary = strings.TrimSpace(summary)
	}
}

// Cache persists ranked topics so repeat sessions within a day skip the
// network round trips.
type Cache struct {
	FetchedAt  string  `json:"fetched_at"`
	TopicCount int     `json:"topic_count"`
	Topics     []Topic `json:"topics"`
}

// SaveTopics writes the ranked topics to path.
func SaveTopics(path string, topics []Topic) error {
	cache := Cache{
		FetchedAt:  time.Now().Format(time.RFC3339),
		TopicCount: len(topics),
		Topics:     topics,
	}
	raw, err := sonic.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("research: marshal topics: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("research: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

// LoadTopics reads a cached topic list, returning it only when fetched less
// than maxAge ago.
func LoadTopics(path string, maxAge time.Duration) ([]Topic, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cache Cache
	if err := sonic.Unmarshal(raw, &cache); err != nil {
		return nil, false
	}
	fetched, err := time.Parse(time.RFC3339, cache.FetchedAt)
	if err != nil || time.Since(fetched) > maxAge {
		return nil, false
	}
	return cache.Topics, true
}
