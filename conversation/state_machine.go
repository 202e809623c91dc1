// Package conversation tracks the host's conversational mode across turns
// and decides the instruction block attached to the next response.
package conversation

import (
	"strings"
	"sync"

	"podbuddy/core"
)

// MemoryStore is the durable memory collaborator observed by the state
// machine for its side effects.
type MemoryStore interface {
	RecordTopic(topic string)
	RecordOpinion(topic, text string)
	ExtractOpinions(text, topic string) bool
	ContextSummary() string
}

// silenceThreshold is the number of consecutive empty inputs after which the
// host is forced into ASK to fill the dead air. This rule takes priority over
// the normal transition table.
const silenceThreshold = 2

// stateInstructions maps each conversational state to its fixed
// natural-language instruction block. Static table, never computed.
var stateInstructions = map[core.ConversationState]string{
	core.StateIntro: "You are starting a new topic. Introduce it with excitement and energy. " +
		"Give a brief hook about why this is interesting. End with a question.",
	core.StateExplain: "Explain the current topic in a clear, simple way. " +
		"Use analogies and real-world examples. Keep it conversational.",
	core.StateAsk: "Ask the user a thought-provoking question about the topic. " +
		"Make it personal — 'what do you think?', 'have you ever...?'",
	core.StateReact: "React to what the user just said. Show genuine interest. " +
		"Build on their point. Add your perspective.",
	core.StateExpand: "Expand the discussion. Bring in a related angle, a counter-argument, " +
		"or a fun fact. Keep the energy up.",
}

// silencePrompts are rotated by turn count when the user stays quiet.
var silencePrompts = []string{
	"The user has been quiet. Ask them an engaging question.",
	"Fill the silence with an interesting fact, then ask for their take.",
	"The user might be thinking. Offer a perspective and invite them to respond.",
	"Keep the conversation going! Share a story related to the topic.",
}

// StateMachine owns the TurnContext for one session. All mutation goes
// through Advance, SetTopic and the history helpers.
type StateMachine struct {
	mu     sync.Mutex
	ctx    core.TurnContext
	memory MemoryStore
	logger *core.Logger
}

func NewStateMachine(maxHistory int, memory MemoryStore, logger *core.Logger) *StateMachine {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &StateMachine{
		ctx: core.TurnContext{
			State:      core.StateIntro,
			MaxHistory: maxHistory,
		},
		memory: memory,
		logger: logger.With(map[string]interface{}{"component": "conversation"}),
	}
}

// Advance moves the state machine one turn forward and returns the new state.
// Empty input grows the silence streak; once the streak reaches the threshold
// the state is forced to ASK and the streak resets, overriding the table.
func (m *StateMachine) Advance(userInput string) core.ConversationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx.TurnCount++

	if strings.TrimSpace(userInput) == "" {
		m.ctx.SilenceStreak++
		if m.ctx.SilenceStreak >= silenceThreshold {
			m.ctx.State = core.StateAsk
			m.ctx.SilenceStreak = 0
			m.logger.Debug("silence streak hit, forcing ASK")
		}
		// Below the threshold a silent turn holds the current mode; the
		// cycle only advances on real input.
		return m.ctx.State
	}

	m.ctx.SilenceStreak = 0
	m.ctx.State = m.ctx.State.Next()

	if m.memory != nil && m.ctx.Topic != "" {
		m.memory.ExtractOpinions(userInput, m.ctx.Topic)
	}
	return m.ctx.State
}

// SetTopic starts a new topic: state back to INTRO, counters cleared, and the
// memory collaborator notified.
func (m *StateMachine) SetTopic(topic, context string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx.Topic = topic
	m.ctx.TopicContext = context
	m.ctx.State = core.StateIntro
	m.ctx.TurnCount = 0
	m.ctx.SilenceStreak = 0
	if m.memory != nil {
		m.memory.RecordTopic(topic)
	}
}

// SetState overrides the state field only. Used to roll the mode back when a
// model failure means the turn never happened from the conversation's point
// of view.
func (m *StateMachine) SetState(state core.ConversationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.State = state
}

// State returns the current conversational state.
func (m *StateMachine) State() core.ConversationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.State
}

// Instruction returns the fixed instruction block for the current state.
func (m *StateMachine) Instruction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stateInstructions[m.ctx.State]
}

// Snapshot returns a copy of the turn context. The history slice is shared;
// callers must not mutate it.
func (m *StateMachine) Snapshot() core.TurnContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// AppendHistory records one message, trimming to the configured cap.
func (m *StateMachine) AppendHistory(role core.LLMMessageRole, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.AppendHistory(role, content)
}

// ReplaceHistory swaps in an externally supplied history (transport sessions
// restore it per message), trimmed to the cap.
func (m *StateMachine) ReplaceHistory(history []core.LLMMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.History = core.TrimHistory(history, m.ctx.MaxHistory)
}

// History returns the current history slice.
func (m *StateMachine) History() []core.LLMMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.LLMMessage, len(m.ctx.History))
	copy(out, m.ctx.History)
	return out
}

// IntroPrompt is the synthetic user message that kicks off an episode.
func (m *StateMachine) IntroPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic := m.ctx.Topic
	if topic == "" {
		topic = "something interesting"
	}
	return "Let's start today's podcast episode! The topic is: " + topic + ". " +
		"Introduce it with energy and excitement. Hook the listener."
}

// SilencePrompt returns the prompt used in place of empty user input.
func (m *StateMachine) SilencePrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return silencePrompts[m.ctx.TurnCount%len(silencePrompts)]
}
