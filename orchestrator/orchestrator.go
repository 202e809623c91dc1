// Package orchestrator coordinates one conversational turn end to end: mode
// advance, prompt assembly, model streaming, sentence segmentation, serialized
// synthesis and ordered playback.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"podbuddy/conversation"
	"podbuddy/core"
	"podbuddy/playback"
	"podbuddy/segment"
	"podbuddy/synth"
)

// Status is the orchestrator's turn state.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingModel
	StatusStreaming
	StatusDraining
	StatusComplete
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAwaitingModel:
		return "awaiting_model"
	case StatusStreaming:
		return "streaming"
	case StatusDraining:
		return "draining"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Canned fallback utterances. Model failures are absorbed locally: the caller
// gets one of these instead of a hard error and the turn still completes.
const (
	apologyUnavailable = "Sorry, I can't reach my brain right now. Is the model server running?"
	apologyTimeout     = "Hmm, that took too long. Let me try again."
	apologyGeneric     = "I had a brain glitch. Let's keep going though!"
)

// FarewellPrompt is the synthetic user message for the closing turn.
const FarewellPrompt = "The user wants to end the podcast. Give a warm, short farewell. Thank them."

type Config struct {
	// BasePersona is the leading system prompt shared by every turn.
	BasePersona string
	// ModelTimeout bounds the wall-clock wait on the token stream.
	ModelTimeout time.Duration
	// SentenceGroup merges that many raw sentences into one synthesis unit.
	SentenceGroup int
	// MaxHistory caps the prompt history; oldest messages drop first.
	MaxHistory int
	// OnToken, when set, observes every streamed token (transport relay).
	OnToken func(token string)
}

func DefaultConfig() Config {
	return Config{
		BasePersona: "You are a smart, energetic podcast host and driving companion.\n" +
			"You never end conversations.\n" +
			"You explain clearly.\n" +
			"You ask engaging questions.\n" +
			"You speak casually like a friend in a car.\n" +
			"You use examples and stories.\n" +
			"Keep responses concise — under 4 sentences unless explaining something complex.\n" +
			"Always end with a question or invitation to continue.",
		ModelTimeout:  120 * time.Second,
		SentenceGroup: 2,
		MaxHistory:    20,
	}
}

// TurnResult reports how one turn ended.
type TurnResult struct {
	TurnID string
	Reply  string
	State  core.ConversationState
	Status Status
}

// Orchestrator drives the turn pipeline. At most one turn is in flight per
// orchestrator; a concurrent RunTurn is rejected, never interleaved.
type Orchestrator struct {
	sm     *conversation.StateMachine
	llm    core.LLMClient
	worker *synth.Worker
	seq    *playback.Sequencer
	memory conversation.MemoryStore
	config Config
	logger *core.Logger

	inFlight int32

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

func New(
	sm *conversation.StateMachine,
	llm core.LLMClient,
	worker *synth.Worker,
	seq *playback.Sequencer,
	memory conversation.MemoryStore,
	config Config,
	logger *core.Logger,
) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.ModelTimeout <= 0 {
		config.ModelTimeout = DefaultConfig().ModelTimeout
	}
	if config.SentenceGroup < 1 {
		config.SentenceGroup = 1
	}
	return &Orchestrator{
		sm:     sm,
		llm:    llm,
		worker: worker,
		seq:    seq,
		memory: memory,
		config: config,
		logger: logger.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Status returns the current turn status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}

// Cancel stops the turn in flight, if any. Unplayed queued units are
// discarded; the buffer already playing finishes.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RunTurn processes one full conversational turn and blocks until the last
// buffer finishes playing (or the turn fails, or is cancelled).
func (o *Orchestrator) RunTurn(ctx context.Context, userInput string) (*TurnResult, error) {
	if !atomic.CompareAndSwapInt32(&o.inFlight, 0, 1) {
		return nil, core.ErrTurnInFlight
	}
	defer atomic.StoreInt32(&o.inFlight, 0)

	turnID := uuid.New().String()
	logger := o.logger.With(map[string]interface{}{"turn": turnID})

	prevState := o.sm.State()
	state := o.sm.Advance(userInput)

	input := strings.TrimSpace(userInput)
	if input == "" {
		input = o.sm.SilencePrompt()
	}

	messages := o.buildPrompt(input)

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	o.setStatus(StatusAwaitingModel)
	logger.Debug("turn started", "state", string(state))

	modelCtx, cancelModel := context.WithTimeout(turnCtx, o.config.ModelTimeout)
	defer cancelModel()
	tokens, errs := o.llm.StreamChat(modelCtx, messages)

	seg := segment.NewSegmenter(o.config.SentenceGroup)
	var full strings.Builder
	var streamErr error
	cancelled := false

receive:
	for {
		select {
		case <-turnCtx.Done():
			cancelled = true
			break receive
		case tok, ok := <-tokens:
			if !ok {
				break receive
			}
			if o.Status() == StatusAwaitingModel {
				o.setStatus(StatusStreaming)
			}
			full.WriteString(tok)
			if o.config.OnToken != nil {
				o.config.OnToken(tok)
			}
			for _, unit := range seg.Push(tok) {
				if err := o.admit(turnCtx, unit, logger); err != nil {
					cancelled = true
					break receive
				}
			}
		}
	}

	// A terminal stream failure is buffered on errs before the token channel
	// closes, so a non-blocking drain is race free.
	select {
	case err := <-errs:
		streamErr = err
	default:
	}

	if errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
		// The caller's own deadline expired mid-stream; that is a timeout,
		// not a cancellation. The apology runs on a fresh context so the
		// turn still audibly concludes.
		o.seq.Drain()
		return o.failTurn(context.Background(), turnID, prevState, input, core.ErrModelTimeout, logger)
	}

	if cancelled || errors.Is(turnCtx.Err(), context.Canceled) {
		o.seq.Drain()
		reply := strings.TrimSpace(full.String())
		o.sm.AppendHistory(core.LLMMessageRoleUser, input)
		if reply != "" {
			o.sm.AppendHistory(core.LLMMessageRoleAssistant, reply)
		}
		o.setStatus(StatusCancelled)
		logger.Info("turn cancelled", "spoken_chars", len(reply))
		return &TurnResult{TurnID: turnID, Reply: reply, State: o.sm.State(), Status: StatusCancelled}, nil
	}

	if streamErr != nil {
		return o.failTurn(turnCtx, turnID, prevState, input, streamErr, logger)
	}

	o.setStatus(StatusDraining)
	for _, unit := range seg.Flush() {
		if err := o.admit(turnCtx, unit, logger); err != nil {
			break
		}
	}
	o.seq.Drain()

	reply := strings.TrimSpace(full.String())
	o.sm.AppendHistory(core.LLMMessageRoleUser, input)
	o.sm.AppendHistory(core.LLMMessageRoleAssistant, reply)

	o.setStatus(StatusComplete)
	logger.Debug("turn complete", "reply_chars", len(reply))
	return &TurnResult{TurnID: turnID, Reply: reply, State: o.sm.State(), Status: StatusComplete}, nil
}

// failTurn recovers a model failure locally: the conversational state rolls
// back to what it was before the call, the caller gets a canned apology, and
// the apology is still spoken so the turn audibly completes.
func (o *Orchestrator) failTurn(
	ctx context.Context,
	turnID string,
	prevState core.ConversationState,
	input string,
	streamErr error,
	logger *core.Logger,
) (*TurnResult, error) {
	reply := apologyGeneric
	switch {
	case errors.Is(streamErr, core.ErrModelTimeout), errors.Is(streamErr, context.DeadlineExceeded):
		reply = apologyTimeout
		logger.Error("model stream timed out", "error", streamErr)
	case errors.Is(streamErr, core.ErrModelUnavailable):
		reply = apologyUnavailable
		logger.Error("model unavailable", "error", streamErr)
	default:
		logger.Error("model stream failed", "error", streamErr)
	}

	o.sm.SetState(prevState)
	o.speak(ctx, reply, logger)

	o.sm.AppendHistory(core.LLMMessageRoleUser, input)
	o.sm.AppendHistory(core.LLMMessageRoleAssistant, reply)

	o.setStatus(StatusFailed)
	return &TurnResult{TurnID: turnID, Reply: reply, State: prevState, Status: StatusFailed}, nil
}

// admit runs one unit through synthesis and playback admission. Cancellation
// is observed before synthesis and before playback; a synthesis failure drops
// the unit and keeps the pipeline alive.
func (o *Orchestrator) admit(ctx context.Context, unit *core.SentenceUnit, logger *core.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf, err := o.worker.Synthesize(ctx, unit)
	if err != nil {
		logger.Warn("dropping sentence after synthesis failure", "seq", unit.SequenceIndex, "error", err)
		return nil
	}

	if err := ctx.Err(); err != nil {
		buf.Release()
		return err
	}
	return o.seq.Submit(ctx, buf)
}

// speak synthesizes and plays a short utterance through the regular pipeline,
// outside any model stream.
func (o *Orchestrator) speak(ctx context.Context, text string, logger *core.Logger) {
	for _, unit := range segment.SegmentAll(text, o.config.SentenceGroup) {
		if err := o.admit(ctx, unit, logger); err != nil {
			break
		}
	}
	o.seq.Drain()
}

// RunFarewell issues the short closing turn after a stop request, outside the
// cancelled turn's pipeline. The conversation state is not advanced and the
// farewell is not recorded in history.
func (o *Orchestrator) RunFarewell(ctx context.Context) (string, error) {
	if !atomic.CompareAndSwapInt32(&o.inFlight, 0, 1) {
		return "", core.ErrTurnInFlight
	}
	defer atomic.StoreInt32(&o.inFlight, 0)

	logger := o.logger.With(map[string]interface{}{"turn": "farewell"})

	chatCtx, cancel := context.WithTimeout(ctx, o.config.ModelTimeout)
	defer cancel()

	reply, err := o.llm.Chat(chatCtx, o.buildPrompt(FarewellPrompt))
	if err != nil {
		logger.Error("farewell generation failed", "error", err)
		reply = "Thanks for riding along. See you next time!"
	}

	o.speak(ctx, reply, logger)
	return reply, nil
}

// StateMachine exposes the session's state machine to the caller (topic
// selection, history restore).
func (o *Orchestrator) StateMachine() *conversation.StateMachine {
	return o.sm
}
