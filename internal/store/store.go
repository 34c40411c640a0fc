package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DBUnavailableSleep is the backoff between listener reconnect attempts.
const DBUnavailableSleep = 2 * time.Second

// Config configures a Store before Open is called. DatabaseURL is
// required; RedisURL is optional and, when empty, the gateway reads
// storage directly on every notification instead of coalescing through
// a cache.
type Config struct {
	DatabaseURL string
	RedisURL    string
	RunDDL      bool
	DDLPath     string
}

// Store is the Store Gateway: the only component that issues database
// queries. New performs no I/O; Open acquires the pool and the
// dedicated LISTEN connection, reads the server identity, runs the
// startup cleanup, and starts the notification consumer. This mirrors
// the two-step async-init replacement: a pure constructor and a
// separate I/O-performing Open.
type Store struct {
	cfg       Config
	callbacks Callbacks
	log       zerolog.Logger

	pool     *pgxpool.Pool
	listener *pgx.Conn
	redis    *redis.Client

	identity ServerIdentity

	mu       sync.Mutex // guards listener + registry together
	registry map[string]bool

	queue chan update
	done  chan struct{}

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New constructs a Store with no I/O performed yet.
func New(cfg Config, callbacks Callbacks) *Store {
	return &Store{
		cfg:       cfg,
		callbacks: callbacks,
		log:       zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "store").Logger(),
		registry:  make(map[string]bool),
		queue:     make(chan update, 256),
		done:      make(chan struct{}),
	}
}

// Open runs the startup sequence in order: acquire the pool and
// listener, read the identity, optionally run DDL, clean up orphaned
// rows, and start the notification consumer.
func (s *Store) Open(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return wrapStorage("open pool", err)
	}
	s.pool = pool

	listener, err := pgx.Connect(ctx, s.cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return wrapStorage("open listener", err)
	}
	s.listener = listener

	identity, err := readServerIdentity()
	if err != nil {
		return err
	}
	s.identity = identity

	if s.cfg.RunDDL {
		if err := s.runDDL(ctx); err != nil {
			return err
		}
	}

	if err := s.cleanupOrphaned(ctx); err != nil {
		return err
	}

	if s.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("store: parsing REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
	}

	// The listener and consumer goroutines run for the Store's whole
	// lifetime; errgroup gives Close a single Wait() to join both of
	// them after a coordinated cancellation instead of two bare `go`
	// statements with no way to know they've actually stopped.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	eg, egCtx := errgroup.WithContext(runCtx)
	s.eg = eg
	eg.Go(func() error {
		s.runListener(egCtx)
		return nil
	})
	eg.Go(func() error {
		s.runConsumer(egCtx)
		return nil
	})

	return nil
}

// Identity returns the ServerIdentity established at Open.
func (s *Store) Identity() ServerIdentity { return s.identity }

// Ping reports whether the pool can still reach the database, for the
// liveness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close drains the consumer and closes the pool and listener. It does
// not release managed_by rows; the caller is expected to Unsubscribe
// every key it still owns before calling Close (see Server.Shutdown).
func (s *Store) Close(ctx context.Context) {
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	if s.eg != nil {
		_ = s.eg.Wait()
	}
	if s.listener != nil {
		_ = s.listener.Close(ctx)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
