package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"podbuddy/core"
	"podbuddy/factories"
	"podbuddy/memory"
	"podbuddy/orchestrator"
	"podbuddy/playback"
	"podbuddy/research"
	"podbuddy/services/ollama"
	"podbuddy/transports/websocket"
	"podbuddy/utils/text"
)

func main() {
	var settingsPath string
	var listenAddr string
	var noAudio bool
	flag.StringVar(&settingsPath, "settings", "./settings.json", "path to settings.json")
	flag.StringVar(&listenAddr, "listen", "", "serve WebSocket transport on this address instead of the local loop")
	flag.BoolVar(&noAudio, "no-audio", false, "print replies instead of playing audio (local loop only)")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.Warn("No .env.local file found or failed to load", "error", err)
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.Warn("failed to load settings, using defaults", "path", settingsPath, "error", err)
		settings = factories.DefaultSettingsConfig()
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := memory.NewStore(settings.MemoryPath, logger)
	llm := ollama.NewClient(settings.Ollama, logger)

	checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := llm.Check(checkCtx); err != nil {
		logger.Error("model server not ready", "error", err)
		checkCancel()
		os.Exit(1)
	}
	checkCancel()
	llm.Warmup(ctx)

	if settings.ListenAddr != "" {
		runServer(ctx, settings, store, llm, logger)
		return
	}
	runLocalLoop(ctx, settings, store, llm, noAudio, logger)
}

// runServer serves the WebSocket transport; every connection gets its own
// session sharing the memory store and model client.
func runServer(
	ctx context.Context,
	settings factories.SettingsConfig,
	store *memory.Store,
	llm *ollama.Client,
	logger *core.Logger,
) {
	server := websocket.NewServer(func(player playback.Player, onToken func(string)) (*orchestrator.Orchestrator, error) {
		sess, err := factories.BuildSession(settings, store, llm, player, onToken, logger)
		if err != nil {
			return nil, err
		}
		return sess.Orchestrator, nil
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", server)
	httpServer := &http.Server{Addr: settings.ListenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", "addr", settings.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
	}
}

// runLocalLoop runs the conversation against the terminal: topics from
// research, typed input in, spoken audio out.
func runLocalLoop(
	ctx context.Context,
	settings factories.SettingsConfig,
	store *memory.Store,
	llm *ollama.Client,
	noAudio bool,
	logger *core.Logger,
) {
	var player playback.Player
	var onToken func(string)
	if noAudio {
		player = &playback.TextPlayer{Logger: logger}
		onToken = func(tok string) { fmt.Print(tok) }
	}
	sess, err := factories.BuildSession(settings, store, llm, player, onToken, logger)
	if err != nil {
		logger.Fatal("session setup failed", "error", err)
	}

	if err := sess.TTS.Check(ctx); err != nil && !noAudio {
		logger.Warn("synthesis server not ready, replies will be silent", "error", err)
	} else if !noAudio {
		if err := sess.Worker.Warmup(ctx); err != nil {
			logger.Warn("synthesis warmup failed", "error", err)
		}
	}

	store.IncrementSession()

	topic := pickTopic(ctx, settings, llm, logger)
	if topic.Title != "" {
		// SetTopic records the topic to memory; no separate RecordTopic call.
		sess.StateMachine.SetTopic(topic.Title, topic.Summary)
		logger.Info("topic selected", "topic", topic.Title, "source", topic.Source)
	}

	// Opening turn: no user input, the host introduces the topic.
	if _, err := sess.Orchestrator.RunTurn(ctx, ""); err != nil {
		logger.Error("opening turn failed", "error", err)
	}
	if noAudio {
		fmt.Println()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		if text.IsStopPhrase(input) {
			sess.Orchestrator.Cancel()
			if _, err := sess.Orchestrator.RunFarewell(ctx); err != nil {
				logger.Warn("farewell failed", "error", err)
			}
			break
		}

		if _, err := sess.Orchestrator.RunTurn(ctx, input); err != nil {
			logger.Error("turn failed", "error", err)
		}
		if noAudio {
			fmt.Println()
		}

		if ctx.Err() != nil {
			break
		}
	}

	if err := store.Save(); err != nil {
		logger.Error("could not save memory", "error", err)
	}
	logger.Info("session over", "turns", sess.StateMachine.Snapshot().TurnCount)
}

// pickTopic loads cached research topics (refreshing when stale) and returns
// the best one. Failures fall back to an empty topic so the host can open
// generically.
func pickTopic(
	ctx context.Context,
	settings factories.SettingsConfig,
	llm *ollama.Client,
	logger *core.Logger,
) research.Topic {
	if topics, ok := research.LoadTopics(settings.TopicsPath, 12*time.Hour); ok && len(topics) > 0 {
		return topics[0]
	}

	crawler := research.NewCrawler(llm, settings.Subreddits, logger)
	fetchCtx, fetchCancel := context.WithTimeout(ctx, 60*time.Second)
	defer fetchCancel()
	topics, err := crawler.Fetch(fetchCtx)
	if err != nil {
		logger.Warn("topic research failed", "error", err)
		return research.Topic{}
	}
	if err := research.SaveTopics(settings.TopicsPath, topics); err != nil {
		logger.Warn("could not cache topics", "error", err)
	}
	return topics[0]
}
