package server

import (
	"context"
	"sync"

	"github.com/coder/websocket"

	"igoserver/internal/session"
)

// connectionRegistry is the set of live sockets, keyed by connection ID,
// used only so Shutdown can reach every open connection.
type connectionRegistry struct {
	mu    sync.Mutex
	byID  map[string]*session.Connection
	socks map[string]*websocket.Conn
}

func newConnectionRegistry() *connectionRegistry {
	return &connectionRegistry{
		byID:  make(map[string]*session.Connection),
		socks: make(map[string]*websocket.Conn),
	}
}

func (r *connectionRegistry) add(id string, conn *session.Connection, sock *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = conn
	r.socks[id] = sock
}

func (r *connectionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	delete(r.socks, id)
}

func (r *connectionRegistry) snapshot() map[string]*session.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*session.Connection, len(r.byID))
	for id, c := range r.byID {
		out[id] = c
	}
	return out
}

func (r *connectionRegistry) sock(id string) *websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.socks[id]
}

// closeAllConnections unsubscribes every connection's key and closes
// its socket, used during Shutdown so no managed_by row is left
// orphaned by a server that is about to go away cleanly.
func (s *Server) closeAllConnections(ctx context.Context) {
	for id, conn := range s.conns.snapshot() {
		s.manager.HandleClose(ctx, conn)
		if sock := s.conns.sock(id); sock != nil {
			sock.Close(websocket.StatusServiceRestart, "server shutting down")
		}
	}
}
