package factories

import (
	"podbuddy/conversation"
	"podbuddy/core"
	"podbuddy/memory"
	"podbuddy/orchestrator"
	"podbuddy/playback"
	"podbuddy/services/coqui"
	"podbuddy/services/ollama"
	"podbuddy/synth"
)

// Session bundles one fully wired conversation pipeline.
type Session struct {
	Orchestrator *orchestrator.Orchestrator
	StateMachine *conversation.StateMachine
	LLM          *ollama.Client
	TTS          *coqui.TTS
	Worker       *synth.Worker
	Memory       *memory.Store
}

// BuildSession assembles a pipeline from the settings. The player decides
// where audio goes (local speakers or a transport); onToken, when non-nil,
// observes streamed tokens.
func BuildSession(
	cfg SettingsConfig,
	store *memory.Store,
	llm *ollama.Client,
	player playback.Player,
	onToken func(token string),
	logger *core.Logger,
) (*Session, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	if store == nil {
		store = memory.NewStore(cfg.MemoryPath, logger)
	}
	if llm == nil {
		llm = ollama.NewClient(cfg.Ollama, logger)
	}

	tts := coqui.NewTTS(cfg.Coqui, logger)
	cleaner := synth.NewCleaner(synth.DefaultMaxChars)
	worker := synth.NewWorker(tts, cleaner, logger)

	var fallback playback.Player
	if player == nil {
		player = playback.DefaultPlayer(cfg.AudioDir)
		fallback = playback.FallbackPlayer(cfg.AudioDir)
	}
	seq := playback.NewSequencer(player, fallback, logger)

	oc := cfg.OrchestratorConfig()
	oc.OnToken = onToken

	sm := conversation.NewStateMachine(oc.MaxHistory, store, logger)
	orch := orchestrator.New(sm, llm, worker, seq, store, oc, logger)

	return &Session{
		Orchestrator: orch,
		StateMachine: sm,
		LLM:          llm,
		TTS:          tts,
		Worker:       worker,
		Memory:       store,
	}, nil
}
