package orchestrator

import (
	"podbuddy/core"
)

// buildPrompt assembles the ordered message list for the model: base persona
// plus state instruction (and memory digest) as the leading system message,
// an optional topic-context system message, the trimmed history, then the
// current user input.
func (o *Orchestrator) buildPrompt(input string) []core.LLMMessage {
	snap := o.sm.Snapshot()

	sys := o.config.BasePersona +
		"\n\nCurrent conversation state: " + string(snap.State) + "\n" +
		o.sm.Instruction()

	if o.memory != nil {
		if mem := o.memory.ContextSummary(); mem != "" {
			sys += "\n\nUser memory:\n" + mem
		}
	}

	messages := []core.LLMMessage{{Role: core.LLMMessageRoleSystem, Content: sys}}

	if snap.TopicContext != "" {
		messages = append(messages, core.LLMMessage{
			Role:    core.LLMMessageRoleSystem,
			Content: "Today's discussion topic context:\n" + snap.TopicContext,
		})
	}

	messages = append(messages, core.TrimHistory(snap.History, o.config.MaxHistory)...)
	messages = append(messages, core.LLMMessage{Role: core.LLMMessageRoleUser, Content: input})
	return messages
}
