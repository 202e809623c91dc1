// Package protocol defines the JSON wire messages exchanged between the
// WebSocket transport and connected clients.
package protocol

import "encoding/json"

// MessageType enumerates all chat message types.
type MessageType string

const (
	// Client -> server
	MsgStartTopic MessageType = "start_topic"
	MsgUserText   MessageType = "message"
	MsgStop       MessageType = "stop"

	// Server -> client
	MsgToken       MessageType = "token"
	MsgAudioHeader MessageType = "audio"
	MsgState       MessageType = "state"
	MsgComplete    MessageType = "complete"
	MsgError       MessageType = "error"
)

// Envelope is the outer JSON wrapper for all text-frame messages. Audio data
// itself travels as binary frames announced by a preceding audio header.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> server payloads ---

// StartTopicPayload opens a session around one discussion topic.
type StartTopicPayload struct {
	Topic   string `json:"topic"`
	Context string `json:"context,omitempty"`
}

// UserTextPayload carries one user utterance. An empty Text represents a
// silent turn.
type UserTextPayload struct {
	Text string `json:"text"`
}

// --- Server -> client payloads ---

// TokenPayload streams one model token as it is generated.
type TokenPayload struct {
	TurnID string `json:"turn_id,omitempty"`
	Token  string `json:"token"`
}

// AudioHeaderPayload announces the binary frame that immediately follows it.
type AudioHeaderPayload struct {
	TurnID        string `json:"turn_id,omitempty"`
	SequenceIndex int    `json:"sequence_index"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	Encoding      string `json:"encoding"`
	Text          string `json:"text,omitempty"`
}

// StatePayload reports the conversation mode after a turn advanced it.
type StatePayload struct {
	TurnID string `json:"turn_id"`
	State  string `json:"state"`
}

// CompletePayload marks the end of a turn.
type CompletePayload struct {
	TurnID string `json:"turn_id"`
	Status string `json:"status"`
	Reply  string `json:"reply,omitempty"`
}

// ErrorPayload reports a turn or session failure.
type ErrorPayload struct {
	TurnID  string `json:"turn_id,omitempty"`
	Message string `json:"message"`
}
