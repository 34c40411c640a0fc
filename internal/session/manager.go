package session

import (
	"context"
	"log"
	"sync"

	"igoserver/internal/ailaunch"
	"igoserver/internal/igo"
	"igoserver/internal/store"
	"igoserver/internal/wire"
)

// Connection is the socket-side handle the server package owns: one per
// live websocket, carrying at most one ClientSession at a time. All
// handling for a given connection happens on that connection's own
// goroutine, so Connection itself needs no locking for the fields a
// handler reads and writes directly; Session is swapped under mu only
// because the shutdown sweep (Server.Shutdown calling HandleClose from
// another goroutine) detaches it concurrently.
type Connection struct {
	ID     string
	Sender Sender

	mu      sync.Mutex
	session *ClientSession
}

// NewConnection wraps a transport-level sender as a session Connection.
func NewConnection(id string, sender Sender) *Connection {
	return &Connection{ID: id, Sender: sender}
}

func (c *Connection) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Key
}

func (c *Connection) setSession(s *ClientSession) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// takeSession detaches and returns the connection's session, so close
// handling runs at most once per attached key even when the shutdown
// sweep and the socket handler's own teardown both reach HandleClose.
func (c *Connection) takeSession() *ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	c.session = nil
	return s
}

// Manager is the Session Manager. It holds the key -> ClientSession
// back-index the store's notification callbacks route through, and
// translates wire frames into Store Gateway operations.
type Manager struct {
	st *store.Store
	ai *ailaunch.Launcher

	mu    sync.Mutex
	byKey map[string]*ClientSession

	unsubWG sync.WaitGroup
}

// NewManager constructs a Manager. Call Callbacks() and pass the result
// into store.New before calling store.Open, so no notification arrives
// before the registry exists.
func NewManager(ai *ailaunch.Launcher) *Manager {
	return &Manager{
		ai:    ai,
		byKey: make(map[string]*ClientSession),
	}
}

// BindStore attaches the Store Gateway once it has been constructed.
// Separate from NewManager because the store and manager are
// constructed independently and then wired together, mirroring the
// two-step construction pattern used elsewhere.
func (m *Manager) BindStore(st *store.Store) {
	m.st = st
}

// Callbacks returns the store.Callbacks this manager implements.
func (m *Manager) Callbacks() store.Callbacks {
	return store.Callbacks{
		OnGameStatus:        m.onGameStatus,
		OnChat:              m.onChat,
		OnOpponentConnected: m.onOpponentConnected,
	}
}

func (m *Manager) register(s *ClientSession) {
	m.mu.Lock()
	m.byKey[s.Key] = s
	m.mu.Unlock()
}

func (m *Manager) unregister(key string) {
	m.mu.Lock()
	delete(m.byKey, key)
	m.mu.Unlock()
}

func (m *Manager) lookup(key string) *ClientSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[key]
}

// Drain blocks until every in-flight Unsubscribe spawned by HandleClose
// has finished, or ctx expires. Keys still held at the deadline are
// left for the next startup's cleanup pass, consistent with the
// crash-recovery design.
func (m *Manager) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		m.unsubWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// onGameStatus is installed with the Store Gateway; it never raises
// past the gateway and simply logs when a key is unknown locally.
func (m *Manager) onGameStatus(key string, blob []byte, timePlayed float64) {
	s := m.lookup(key)
	if s == nil {
		log.Printf("session: game_status for unknown key %s dropped", key)
		return
	}
	s.mu.Lock()
	var g igo.Game
	if err := g.UnmarshalJSON(blob); err != nil {
		s.mu.Unlock()
		log.Printf("session: decoding game_status blob for %s: %v", key, err)
		return
	}
	s.Game = &g
	s.TimePlayed = timePlayed
	sender := s.sender
	s.mu.Unlock()

	ctx := context.Background()
	_ = sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.GameStatus, Data: gameStatusPayload(&g, timePlayed)})
}

func (m *Manager) onChat(key string, update store.ChatUpdate) {
	s := m.lookup(key)
	if s == nil {
		return
	}
	entries := toChatEntries(update.Messages)

	s.mu.Lock()
	if update.IsComplete {
		s.Chat.replace(entries)
	} else {
		s.Chat.extend(entries)
	}
	// Send only what just arrived, not the whole accumulated cache: a
	// client applying isComplete=false as "append this" would otherwise
	// duplicate every entry already delivered by an earlier notification.
	// The frame's flag is the update's, not the cache's: a delta is an
	// append instruction even when the cache happens to be complete.
	payload := wire.ChatData{Thread: entries, IsComplete: update.IsComplete}
	sender := s.sender
	s.mu.Unlock()

	_ = sender.Send(context.Background(), wire.OutgoingMessage{MessageType: wire.Chat, Data: payload})
}

func (m *Manager) onOpponentConnected(key string, connected bool) {
	s := m.lookup(key)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.OpponentConnected = connected
	sender := s.sender
	s.mu.Unlock()

	_ = sender.Send(context.Background(), wire.OutgoingMessage{
		MessageType: wire.OpponentConnected,
		Data:        wire.OpponentConnectedData{OpponentConnected: connected},
	})
}

func toChatEntries(msgs []store.ChatMessage) []wire.ChatEntry {
	out := make([]wire.ChatEntry, len(msgs))
	for i, msg := range msgs {
		out[i] = wire.ChatEntry{
			Timestamp: msg.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			Color:     msg.Color,
			Message:   msg.Text,
			ID:        msg.ID,
		}
	}
	return out
}

func gameStatusPayload(g *igo.Game, timePlayed float64) igo.StatusData {
	return g.StatusPayload(timePlayed)
}
