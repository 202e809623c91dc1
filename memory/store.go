// Package memory persists what the host learns across sessions: discussed
// topics, user opinions, preferences and a session counter, stored as one
// JSON file.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"podbuddy/core"
)

const keepLast = 100 // retained entries per append-only list

// opinionMarkers are the first-person phrases that flag user text as an
// opinion worth remembering.
var opinionMarkers = []string{
	"i think", "i believe", "i love", "i hate", "i prefer",
	"i like", "i don't like", "my opinion", "in my view",
	"honestly", "actually", "i feel", "i disagree", "i agree",
}

type TopicEntry struct {
	Topic     string `json:"topic"`
	Timestamp string `json:"timestamp"`
}

type OpinionEntry struct {
	Topic     string `json:"topic"`
	Opinion   string `json:"opinion"`
	Timestamp string `json:"timestamp"`
}

type data struct {
	TopicsDiscussed   []TopicEntry      `json:"topics_discussed"`
	UserOpinions      []OpinionEntry    `json:"user_opinions"`
	Preferences       map[string]string `json:"preferences"`
	ConversationCount int               `json:"conversation_count"`
	LastSession       string            `json:"last_session,omitempty"`
}

// Store is a file-backed memory store. Every mutation persists immediately;
// losing a crash's worth of memory is worse than the extra writes.
type Store struct {
	mu       sync.Mutex
	filepath string
	data     data
	logger   *core.Logger
}

func NewStore(path string, logger *core.Logger) *Store {
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &Store{
		filepath: path,
		data:     data{Preferences: map[string]string{}},
		logger:   logger.With(map[string]interface{}{"component": "memory"}),
	}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.filepath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not load memory", "error", err)
		}
		return
	}
	if err := sonic.Unmarshal(raw, &s.data); err != nil {
		s.logger.Warn("could not parse memory file", "error", err)
		return
	}
	if s.data.Preferences == nil {
		s.data.Preferences = map[string]string{}
	}
	s.logger.Info("memory loaded",
		"topics", len(s.data.TopicsDiscussed),
		"opinions", len(s.data.UserOpinions))
}

// Save persists the store to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	s.data.LastSession = time.Now().Format(time.RFC3339)
	raw, err := sonic.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal: %w", err)
	}
	if dir := filepath.Dir(s.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("memory: %w", err)
		}
	}
	if err := os.WriteFile(s.filepath, raw, 0o644); err != nil {
		return fmt.Errorf("memory: write: %w", err)
	}
	return nil
}

// RecordTopic notes that a topic was discussed.
func (s *Store) RecordTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.TopicsDiscussed = append(s.data.TopicsDiscussed, TopicEntry{
		Topic:     topic,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if n := len(s.data.TopicsDiscussed); n > keepLast {
		s.data.TopicsDiscussed = s.data.TopicsDiscussed[n-keepLast:]
	}
	if err := s.saveLocked(); err != nil {
		s.logger.Error("could not save memory", "error", err)
	}
}

// RecordOpinion stores a user opinion about a topic.
func (s *Store) RecordOpinion(topic, opinion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UserOpinions = append(s.data.UserOpinions, OpinionEntry{
		Topic:     topic,
		Opinion:   opinion,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if n := len(s.data.UserOpinions); n > keepLast {
		s.data.UserOpinions = s.data.UserOpinions[n-keepLast:]
	}
	if err := s.saveLocked(); err != nil {
		s.logger.Error("could not save memory", "error", err)
	}
}

// ExtractOpinions scans text for first-person opinion markers and records the
// text as an opinion when one matches. Returns whether anything was saved.
func (s *Store) ExtractOpinions(text, topic string) bool {
	lower := strings.ToLower(text)
	for _, marker := range opinionMarkers {
		if strings.Contains(lower, marker) {
			s.RecordOpinion(topic, text)
			s.logger.Info("saved user opinion", "topic", topic)
			return true
		}
	}
	return false
}

// SetPreference stores one user preference.
func (s *Store) SetPreference(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Preferences[key] = value
	if err := s.saveLocked(); err != nil {
		s.logger.Error("could not save memory", "error", err)
	}
}

// GetPreference returns a stored preference, or fallback when unset.
func (s *Store) GetPreference(key, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data.Preferences[key]; ok {
		return v
	}
	return fallback
}

// IncrementSession bumps the session counter.
func (s *Store) IncrementSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ConversationCount++
	if err := s.saveLocked(); err != nil {
		s.logger.Error("could not save memory", "error", err)
	}
}

// SessionCount returns how many sessions have been recorded.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ConversationCount
}

// ContextSummary builds the short multi-line digest injected verbatim into
// the prompt: recent topics, recent opinions, preferences and session count.
func (s *Store) ContextSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parts []string

	if n := len(s.data.TopicsDiscussed); n > 0 {
		recent := s.data.TopicsDiscussed
		if n > 5 {
			recent = recent[n-5:]
		}
		titles := make([]string, len(recent))
		for i, t := range recent {
			titles[i] = t.Topic
		}
		parts = append(parts, "Recently discussed topics: "+strings.Join(titles, ", "))
	}

	if n := len(s.data.UserOpinions); n > 0 {
		recent := s.data.UserOpinions
		if n > 5 {
			recent = recent[n-5:]
		}
		ops := make([]string, len(recent))
		for i, o := range recent {
			ops[i] = o.Topic + ": " + o.Opinion
		}
		parts = append(parts, "User opinions: "+strings.Join(ops, "; "))
	}

	if len(s.data.Preferences) > 0 {
		prefs := make([]string, 0, len(s.data.Preferences))
		for k, v := range s.data.Preferences {
			prefs = append(prefs, k+"="+v)
		}
		parts = append(parts, "User preferences: "+strings.Join(prefs, ", "))
	}

	if s.data.ConversationCount > 0 {
		parts = append(parts, fmt.Sprintf("This is conversation session #%d", s.data.ConversationCount+1))
	}

	return strings.Join(parts, "\n")
}
