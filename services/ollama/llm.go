// Package ollama implements the model client against an Ollama server using
// its OpenAI-compatible chat endpoint.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"podbuddy/core"
)

// Config holds the connection settings for the Ollama server.
type Config struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:11434/v1",
		Model:       "llama3.2",
		MaxTokens:   300,
		Temperature: 0.8,
	}
}

// Client talks to a local Ollama server. It implements core.LLMClient.
type Client struct {
	client *openai.Client
	config Config
	logger *core.Logger
	mu     sync.RWMutex
}

func NewClient(config Config, logger *core.Logger) *Client {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	// Ollama ignores the key but the SDK requires one.
	cc := openai.DefaultConfig("ollama")
	cc.BaseURL = config.BaseURL
	return &Client{
		client: openai.NewClientWithConfig(cc),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "ollama"}),
	}
}

// Check verifies the server is reachable and responding.
func (c *Client) Check(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
	}
	return nil
}

// Warmup issues a tiny completion so the model is resident before the first
// real turn.
func (c *Client) Warmup(ctx context.Context) {
	_, err := c.Chat(ctx, []core.LLMMessage{
		{Role: core.LLMMessageRoleUser, Content: "Say OK."},
	})
	if err != nil {
		c.logger.Warn("model warmup failed", "error", err)
		return
	}
	c.logger.Info("model warmed up", "model", c.config.Model)
}

// Chat runs a single non-streaming completion.
func (c *Client) Chat(ctx context.Context, messages []core.LLMMessage) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, false))
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat starts a streaming completion. Tokens arrive on the first
// channel; a terminal error, if any, is buffered on the second channel
// before the token channel closes.
func (c *Client) StreamChat(ctx context.Context, messages []core.LLMMessage) (<-chan string, <-chan error) {
	tokens := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)

		c.mu.RLock()
		stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messages, true))
		c.mu.RUnlock()
		if err != nil {
			errs <- c.classify(err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- c.classify(err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case tokens <- delta:
			case <-ctx.Done():
				errs <- c.classify(ctx.Err())
				return
			}
		}
	}()

	return tokens, errs
}

func (c *Client) buildRequest(messages []core.LLMMessage, stream bool) openai.ChatCompletionRequest {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    converted,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		Stream:      stream,
	}
}

// classify maps transport failures onto the shared error taxonomy so callers
// can pick the right spoken apology.
func (c *Client) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", core.ErrModelTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "no such host"):
		return fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
	default:
		return err
	}
}

func convertRole(role core.LLMMessageRole) string {
	switch role {
	case core.LLMMessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.LLMMessageRoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
