// Package websocket serves the chat transport: each connection gets its own
// conversation session, with model tokens and synthesized audio streamed
// back over the socket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"podbuddy/core"
	"podbuddy/orchestrator"
	"podbuddy/playback"
	"podbuddy/protocol"
	"podbuddy/utils/audio"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewSessionFunc assembles a per-connection orchestrator. The player and
// token callback route the session's output back over the socket.
type NewSessionFunc func(player playback.Player, onToken func(token string)) (*orchestrator.Orchestrator, error)

// Server accepts chat connections and runs one session per connection.
type Server struct {
	newSession NewSessionFunc
	logger     *core.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewServer(newSession NewSessionFunc, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		newSession: newSession,
		logger:     logger.With(map[string]interface{}{"component": "ws"}),
		sessions:   make(map[string]*session),
	}
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects or sends a stop message.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
	}
	sess.logger = s.logger.With(map[string]interface{}{"session": sess.id[:8]})

	player := &socketPlayer{sess: sess}
	orch, err := s.newSession(player, sess.sendToken)
	if err != nil {
		s.logger.Error("session setup failed", "error", err)
		sess.sendError("", "session setup failed")
		conn.Close()
		return
	}
	sess.orch = orch

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	sess.logger.Info("session opened")
	sess.run()

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	sess.logger.Info("session closed")
}

// ActiveSessions returns the number of currently connected clients.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	orch   *orchestrator.Orchestrator
	logger *core.Logger

	writeMu sync.Mutex
	turnMu  sync.Mutex // one turn at a time per session
}

func (s *session) run() {
	defer s.conn.Close()
	for {
		msgType, raw, err := s.conn.ReadMessage()
		if err != nil {
			// Client went away; abandon any in-flight turn.
			s.orch.Cancel()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read failed",
					"error", fmt.Errorf("%w: %v", core.ErrTransportDisconnect, err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		kind, payload, err := protocol.Unmarshal(raw)
		if err != nil {
			s.sendError("", err.Error())
			continue
		}

		switch kind {
		case protocol.MsgStartTopic:
			p, err := protocol.UnmarshalPayload[protocol.StartTopicPayload](payload)
			if err != nil {
				s.sendError("", err.Error())
				continue
			}
			s.orch.StateMachine().SetTopic(p.Topic, p.Context)
			s.logger.Info("topic set", "topic", p.Topic)
			go s.runTurn("")

		case protocol.MsgUserText:
			p, err := protocol.UnmarshalPayload[protocol.UserTextPayload](payload)
			if err != nil {
				s.sendError("", err.Error())
				continue
			}
			go s.runTurn(p.Text)

		case protocol.MsgStop:
			s.orch.Cancel()
			s.turnMu.Lock()
			if _, err := s.orch.RunFarewell(context.Background()); err != nil {
				s.logger.Warn("farewell failed", "error", err)
			}
			s.turnMu.Unlock()
			return
		}
	}
}

func (s *session) runTurn(input string) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	result, err := s.orch.RunTurn(context.Background(), input)
	if err != nil {
		if errors.Is(err, core.ErrTurnInFlight) {
			s.sendError("", "a turn is already in progress")
			return
		}
		s.sendError("", err.Error())
		return
	}

	s.send(protocol.MsgState, protocol.StatePayload{
		TurnID: result.TurnID,
		State:  string(s.orch.StateMachine().State()),
	})
	s.send(protocol.MsgComplete, protocol.CompletePayload{
		TurnID: result.TurnID,
		Status: result.Status.String(),
		Reply:  result.Reply,
	})
}

func (s *session) sendToken(token string) {
	s.send(protocol.MsgToken, protocol.TokenPayload{Token: token})
}

func (s *session) sendError(turnID, msg string) {
	s.send(protocol.MsgError, protocol.ErrorPayload{TurnID: turnID, Message: msg})
}

func (s *session) send(kind protocol.MessageType, payload interface{}) {
	raw, err := protocol.Marshal(kind, payload)
	if err != nil {
		s.logger.Error("marshal failed", "type", string(kind), "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		s.logger.Warn("write failed", "error", err)
	}
}

// socketPlayer implements playback.Player by shipping audio to the client
// as a JSON header followed by one binary frame, companded to mu-law to
// keep frames small.
type socketPlayer struct {
	sess *session
}

func (p *socketPlayer) Play(buf *core.AudioBuffer, blocking bool) error {
	out := buf
	if buf.Format == core.PCM {
		companded, err := audio.CompandBuffer(buf, core.ULAW)
		if err == nil {
			out = companded
		}
	}

	header, err := protocol.Marshal(protocol.MsgAudioHeader, protocol.AudioHeaderPayload{
		SequenceIndex: out.SequenceIndex,
		SampleRate:    out.SampleRate,
		Channels:      out.Channels,
		Encoding:      encodingName(out.Format),
		Text:          out.SourceText,
	})
	if err != nil {
		return err
	}

	p.sess.writeMu.Lock()
	defer p.sess.writeMu.Unlock()
	if err := p.sess.conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransportDisconnect, err)
	}
	if err := p.sess.conn.WriteMessage(websocket.BinaryMessage, out.Data); err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransportDisconnect, err)
	}
	return nil
}

// WaitUntilIdle is immediate: the client buffers and plays on its own clock.
func (p *socketPlayer) WaitUntilIdle() error { return nil }

func encodingName(f core.AudioEncodingFormat) string {
	switch f {
	case core.ULAW:
		return "mulaw"
	case core.ALAW:
		return "alaw"
	default:
		return "linear16"
	}
}
