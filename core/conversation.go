package core

// ConversationState is the host's current conversational mode.
type ConversationState string

const (
	StateIntro   ConversationState = "INTRO"
	StateExplain ConversationState = "EXPLAIN"
	StateAsk     ConversationState = "ASK"
	StateReact   ConversationState = "REACT"
	StateExpand  ConversationState = "EXPAND"
)

// Next applies the fixed transition table. EXPAND loops back to ASK, never to
// INTRO. The silence rule in the state machine takes priority over this table.
func (s ConversationState) Next() ConversationState {
	switch s {
	case StateIntro:
		return StateExplain
	case StateExplain:
		return StateAsk
	case StateAsk:
		return StateReact
	case StateReact:
		return StateExpand
	case StateExpand:
		return StateAsk
	default:
		return StateIntro
	}
}

// TurnContext is the per-session conversation context. It is owned by exactly
// one session and mutated only by the single turn in flight.
type TurnContext struct {
	State         ConversationState
	Topic         string
	TopicContext  string
	SilenceStreak int
	TurnCount     int
	History       []LLMMessage
	MaxHistory    int
}

// AppendHistory appends one message and trims the history to MaxHistory,
// always keeping the tail.
func (t *TurnContext) AppendHistory(role LLMMessageRole, content string) {
	t.History = append(t.History, LLMMessage{Role: role, Content: content})
	t.History = TrimHistory(t.History, t.MaxHistory)
}
