package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"igoserver/internal/ailaunch"
	"igoserver/internal/config"
	"igoserver/internal/session"
	"igoserver/internal/store"
)

// Server owns the Store Gateway, the Session Manager, the optional AI
// Launcher, and the per-connection bookkeeping that sits in front of
// them. NewServer performs all startup I/O; Shutdown unwinds it.
type Server struct {
	cfg config.Config

	store   *store.Store
	manager *session.Manager
	ai      *ailaunch.Launcher

	rateLimiter *RateLimiter
	health      *ConnectionHealth
	conns       *connectionRegistry
}

// NewServer constructs the Store Gateway and Session Manager, opens the
// store (connects, runs migrations if configured, cleans up orphaned
// rows, starts the notification consumer), and returns both the custom
// Server (for Shutdown) and the http.Server ready to serve.
func NewServer(ctx context.Context, cfg config.Config) (*Server, *http.Server, error) {
	var launcher *ailaunch.Launcher
	if cfg.AIServiceURL != "" {
		launcher = ailaunch.New(cfg.AIServiceURL, nil)
	}

	manager := session.NewManager(launcher)

	st := store.New(store.Config{
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		RunDDL:      cfg.RunMigrations,
	}, manager.Callbacks())

	if err := st.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("server: opening store: %w", err)
	}
	manager.BindStore(st)

	srv := &Server{
		cfg:         cfg,
		store:       st,
		manager:     manager,
		ai:          launcher,
		rateLimiter: NewRateLimiter(20, time.Second),
		health:      NewConnectionHealth(),
		conns:       newConnectionRegistry(),
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.registerRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go srv.checkInactiveConnections()

	return srv, httpServer, nil
}

// Shutdown releases every key this server's connections still hold,
// waits for the in-flight releases to finish (bounded by ctx; anything
// still held at the deadline is left for the next startup's cleanup),
// and only then closes the store so no Unsubscribe races the pool
// closing underneath it. It does not touch the http.Server; the
// caller's shutdown sequence closes that separately.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("server: beginning graceful shutdown")
	s.closeAllConnections(ctx)
	s.manager.Drain(ctx)
	s.store.Close(ctx)
	log.Println("server: graceful shutdown complete")
	return nil
}
