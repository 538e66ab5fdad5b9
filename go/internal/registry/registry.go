package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/game"
	"github.com/jdrlotr/fourline/go/internal/matchdir"
)

// ErrNotFound is returned when no session exists for a game id.
var ErrNotFound = errors.New("game not found")

// Config holds registry tunables.
type Config struct {
	CountdownSeconds int
	Retention        time.Duration
	SweepInterval    time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CountdownSeconds: 3,
		Retention:        10 * time.Minute,
		SweepInterval:    time.Minute,
	}
}

// Registry owns the id->session map, the only process-wide mutable
// state. All session lookups funnel through it so each id maps to a
// single in-memory instance; across sessions processing is fully
// parallel.
type Registry struct {
	directory   matchdir.Directory
	broadcaster game.Broadcaster
	clock       clockwork.Clock
	config      Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*game.Session
}

// New creates a registry backed by the given match directory and
// broadcaster.
func New(directory matchdir.Directory, broadcaster game.Broadcaster, clock clockwork.Clock, config Config) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		directory:   directory,
		broadcaster: broadcaster,
		clock:       clock,
		config:      config,
		sessions:    make(map[uuid.UUID]*game.Session),
	}
}

// Create allocates a new waiting session owned by ownerID. The match
// directory assigns the id so the pre-game record and the session can
// never disagree.
func (r *Registry) Create(ctx context.Context, ownerID uuid.UUID) (*game.Session, error) {
	gameID, err := r.directory.CreateMatchRecord(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("create match record: %w", err)
	}

	session := game.NewSession(game.SessionParams{
		ID:               gameID,
		Owner:            ownerID,
		Clock:            r.clock,
		Broadcaster:      r.broadcaster,
		Recorder:         r.directory,
		CountdownSeconds: r.config.CountdownSeconds,
	})

	r.mu.Lock()
	r.sessions[gameID] = session
	r.mu.Unlock()

	log.Info().
		Str("game_id", gameID.String()).
		Str("owner_id", ownerID.String()).
		Msg("session created")
	return session, nil
}

// Get returns the live session for a game id.
func (r *Registry) Get(gameID uuid.UUID) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// Destroy removes a session. Any pending countdown is cancelled; a
// subsequent Get returns ErrNotFound.
func (r *Registry) Destroy(gameID uuid.UUID) {
	r.mu.Lock()
	session, ok := r.sessions[gameID]
	if ok {
		delete(r.sessions, gameID)
	}
	r.mu.Unlock()

	if ok {
		session.Close()
		log.Info().Str("game_id", gameID.String()).Msg("session destroyed")
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Run sweeps finished sessions past the retention period until ctx is
// done.
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	log.Info().
		Dur("retention", r.config.Retention).
		Dur("sweep_interval", r.config.SweepInterval).
		Msg("registry sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("registry sweeper shutting down")
			return
		case <-ticker.Chan():
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	cutoff := r.clock.Now().Add(-r.config.Retention)

	r.mu.RLock()
	var expired []uuid.UUID
	for id, session := range r.sessions {
		if finishedAt, ok := session.FinishedSince(); ok && finishedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.Destroy(id)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("swept finished sessions")
	}
}
