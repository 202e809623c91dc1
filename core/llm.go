package core

import "context"

type LLMMessageRole string

const (
	LLMMessageRoleUser      LLMMessageRole = "user"
	LLMMessageRoleAssistant LLMMessageRole = "assistant"
	LLMMessageRoleSystem    LLMMessageRole = "system"
)

// LLMMessage represents a single role-tagged message exchanged with the LLM.
type LLMMessage struct {
	Role    LLMMessageRole `json:"role"`
	Content string         `json:"content"`
}

// LLMClient is the narrow contract to the language-model backend. The token
// channel returned by StreamChat is closed when the model signals completion;
// a terminal failure is delivered on the error channel before close.
type LLMClient interface {
	// StreamChat issues a chat request and streams the reply token by token.
	StreamChat(ctx context.Context, messages []LLMMessage) (<-chan string, <-chan error)
	// Chat issues a chat request and returns the full reply as one string.
	Chat(ctx context.Context, messages []LLMMessage) (string, error)
	// Check is a cheap reachability/readiness probe.
	Check(ctx context.Context) error
}

// TrimHistory returns the tail of history capped at max messages.
// Oldest entries are dropped first. max <= 0 means no cap.
func TrimHistory(history []LLMMessage, max int) []LLMMessage {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
