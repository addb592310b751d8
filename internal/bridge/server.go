// Package bridge accepts one websocket per viewer from the game proxy,
// runs every outbound packet through the dispatcher and sends it back.
package bridge

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/deathmotion/antihealthindicator/internal/dispatcher"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
	"github.com/deathmotion/antihealthindicator/pkg/streaming"
)

const helloTimeout = 10 * time.Second

// Config holds bridge configuration.
type Config struct {
	// Secret must match the "secret" query parameter when set.
	Secret string
	// DefaultVersion is used when the hello message carries no version.
	DefaultVersion protocol.Version
}

// Server is the websocket endpoint of the filter.
type Server struct {
	cfg        Config
	dispatcher *dispatcher.Dispatcher
	sessions   *session.Registry
	upgrader   ws.Upgrader
	logger     *slog.Logger
}

func New(cfg Config, d *dispatcher.Dispatcher, sessions *session.Registry, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		sessions:   sessions,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Secret != "" {
		got := r.URL.Query().Get("secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Secret)) != 1 {
			http.Error(w, "invalid secret", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	hello, err := readHello(conn)
	if err != nil {
		s.logger.Warn("Rejecting connection", "remote", r.RemoteAddr, "error", err)
		_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.ClosePolicyViolation, err.Error()))
		_ = conn.Close()
		return
	}

	s.serve(conn, hello)
}

func readHello(conn *ws.Conn) (streaming.HelloPayload, error) {
	var hello streaming.HelloPayload

	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, message, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("read hello: %w", err)
	}

	var env streaming.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return hello, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != streaming.TypeHello {
		return hello, fmt.Errorf("expected %s, got %q", streaming.TypeHello, env.Type)
	}
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		return hello, fmt.Errorf("decode hello: %w", err)
	}
	return hello, nil
}

func (s *Server) serve(conn *ws.Conn, hello streaming.HelloPayload) {
	c := newConnection(conn, s.logger)
	defer c.close()

	viewer, err := s.newSession(c, hello)
	if err != nil {
		s.logger.Warn("Rejecting viewer", "name", hello.Name, "error", err)
		return
	}

	if prev := s.sessions.Add(viewer); prev != nil {
		s.logger.Info("Viewer reconnected, replacing session", "name", viewer.Name())
	}
	defer s.sessions.Remove(viewer)

	s.logger.Info("Viewer connected", "name", viewer.Name(), "uuid", viewer.UUID(), "version", viewer.Version())
	defer s.logger.Info("Viewer disconnected", "name", viewer.Name())

	if ack, err := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: streaming.TypeHello}); err == nil {
		c.push(ack)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.closed() && !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.logger.Warn("WebSocket read error", "name", viewer.Name(), "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.logger.Debug("Discarding malformed message", "name", viewer.Name(), "error", err)
			continue
		}
		if env.Type != streaming.TypePacket {
			s.logger.Debug("Ignoring message", "name", viewer.Name(), "type", env.Type)
			continue
		}

		var in streaming.PacketPayload
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			s.logger.Debug("Discarding malformed packet", "name", viewer.Name(), "error", err)
			continue
		}

		out := s.process(viewer, in)
		data, err := streaming.Marshal(streaming.TypeForward, out)
		if err != nil {
			s.logger.Error("Failed to encode forward", "name", viewer.Name(), "error", err)
			continue
		}
		if !c.push(data) {
			return
		}
	}
}

func (s *Server) newSession(c *connection, hello streaming.HelloPayload) (*session.Session, error) {
	id, err := uuid.Parse(hello.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", hello.UUID, err)
	}

	version := s.cfg.DefaultVersion
	if hello.Version != "" {
		version, err = protocol.ParseVersion(hello.Version)
		if err != nil {
			return nil, err
		}
	}

	return session.New(id, hello.Name, version, func(p protocol.Packet) error {
		payload, err := streaming.EncodePacket(0, p)
		if err != nil {
			return err
		}
		data, err := streaming.Marshal(streaming.TypeInject, payload)
		if err != nil {
			return err
		}
		return c.offer(data)
	}), nil
}

// process runs one packet through the dispatcher. The returned payload is
// always forwarded: packets that cannot be decoded go back untouched.
func (s *Server) process(viewer *session.Session, in streaming.PacketPayload) streaming.PacketPayload {
	p, err := protocol.Decode(in.PacketType, in.Data)
	if err != nil {
		if !errors.Is(err, protocol.ErrUnknownPacket) {
			s.logger.Debug("Forwarding undecodable packet", "name", viewer.Name(), "packet", in.PacketType, "error", err)
		}
		return in
	}

	if join, ok := p.(*protocol.JoinGame); ok {
		viewer.SetEntityID(join.EntityID)
	}

	if err := s.dispatcher.Dispatch(dispatcher.Event{Viewer: viewer, Packet: p, Timestamp: time.Now()}); err != nil {
		s.logger.Debug("Packet handler failed", "name", viewer.Name(), "packet", in.PacketType, "error", err)
	}

	out, err := streaming.EncodePacket(in.Seq, p)
	if err != nil {
		s.logger.Error("Failed to encode packet", "name", viewer.Name(), "packet", in.PacketType, "error", err)
		return in
	}
	return out
}
