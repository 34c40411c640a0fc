package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"igoserver/internal/session"
	"igoserver/internal/wire"
)

// allowOrigin reports whether the given socket's Origin header is
// acceptable. An unconfigured OriginSuffix means no restriction (local
// dev / single-origin deployments); otherwise the "^ anchors
// to exact match, else suffix match" rule applies via wire.OriginAllowed.
func (s *Server) allowOrigin(origin string) bool {
	if s.cfg.OriginSuffix == "" {
		return true
	}
	return wire.OriginAllowed(origin, s.cfg.OriginSuffix)
}

func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/ws", s.websocketHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && !s.allowOrigin(origin) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	// Origin is already validated above with the anchor/suffix
	// rule, which coder/websocket's own OriginPatterns glob can't
	// express (no "^" anchor concept), so its built-in check is skipped.
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		http.Error(w, "failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer sock.Close(websocket.StatusInternalError, "connection handler exited")

	ctx := r.Context()
	connID := uuid.New().String()
	sender := &wsSender{conn: sock}
	conn := session.NewConnection(connID, sender)
	s.conns.add(connID, conn, sock)

	log.Printf("server: new connection %s", connID)

	heartbeatDone := make(chan struct{})
	go s.heartbeatLoop(ctx, sock, connID, heartbeatDone)

	defer func() {
		close(heartbeatDone)
		s.conns.remove(connID)
		s.rateLimiter.RemoveConnection(connID)
		s.health.RemoveConnection(connID)
		s.manager.HandleClose(context.Background(), conn)
		log.Printf("server: connection %s closed", connID)
	}()

	for {
		msgType, data, err := sock.Read(ctx)
		if err != nil {
			if closeStatus := websocket.CloseStatus(err); closeStatus == -1 && err != io.EOF {
				log.Printf("server: read error on %s: %v", connID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		s.health.UpdateActivity(connID)
		if !s.rateLimiter.Allow(connID) {
			_ = sender.Send(ctx, wire.OutgoingMessage{
				MessageType: wire.Error,
				Data:        wire.ErrorData{ErrorMessage: "too many messages, slow down"},
			})
			continue
		}

		s.manager.HandleFrame(ctx, conn, data)
	}
}

// heartbeatLoop pings the client periodically so a half-open TCP
// connection gets closed instead of leaking a session forever.
func (s *Server) heartbeatLoop(ctx context.Context, sock *websocket.Conn, connID string, done chan struct{}) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.Ping(ctx); err != nil {
				log.Printf("server: heartbeat failed for %s: %v", connID, err)
				return
			}
			// Ping blocks until the pong arrives, so a successful
			// round trip counts as activity even for a client that
			// sends no frames of its own.
			s.health.UpdateActivity(connID)
		}
	}
}

// checkInactiveConnections closes sockets that stopped answering
// heartbeats, bounding the lifetime of a zombie connection. Pings
// refresh activity every interval, so anything quiet past the pong
// timeout is genuinely dead.
func (s *Server) checkInactiveConnections() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		timeout := s.cfg.PongTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		for _, id := range s.health.InactiveConnections(timeout) {
			if sock := s.conns.sock(id); sock != nil {
				sock.Close(websocket.StatusGoingAway, "connection inactive")
			}
		}
	}
}

