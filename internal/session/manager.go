// Package session owns the per-game-session actor trios. Each session gets
// its own combat, deck and rng actors; sessions never share mutable state,
// so load scales across sessions with no cross-session coordination.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/actor"
	"github.com/rgilks/spf-mcp-sub000/internal/combat"
	"github.com/rgilks/spf-mcp-sub000/internal/deck"
	"github.com/rgilks/spf-mcp-sub000/internal/dice"
	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

// Record is the persistent face of a session, stored by the repository.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository persists session records. The actor state itself is live-only.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Touch(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]Record, error)
}

// Session bundles the actor trio for one game session.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	Combat *actor.Actor[*combat.Combat]
	Deck   *actor.Actor[*deck.Deck]
	Rng    *actor.Actor[*dice.Roller]
	Events *EventBus

	lastActive time.Time
}

// Manager creates, looks up and reaps sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	repo      Repository
	journal   dice.Journal
	useJokers bool
	idleTTL   time.Duration
	logger    *zap.Logger
}

// NewManager creates a session manager. repo and journal may be nil.
func NewManager(repo Repository, journal dice.Journal, useJokers bool, idleTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		repo:      repo,
		journal:   journal,
		useJokers: useJokers,
		idleTTL:   idleTTL,
		logger:    logger,
	}
}

// Create starts a new session with a fresh actor trio.
func (m *Manager) Create(ctx context.Context, name string) (*Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	deckState := deck.New(m.logger.Named("deck"))
	deckActor := actor.New("deck:"+id, deckState, m.logger)

	s := &Session{
		ID:         id,
		Name:       name,
		CreatedAt:  now,
		Deck:       deckActor,
		Combat:     actor.New("combat:"+id, combat.New(newDeckClient(deckActor), m.useJokers, m.logger.Named("combat")), m.logger),
		Rng:        actor.New("rng:"+id, dice.NewRoller(m.journal, m.logger.Named("dice")), m.logger),
		Events:     NewEventBus(),
		lastActive: now,
	}

	if m.repo != nil {
		rec := Record{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
		if err := m.repo.Create(ctx, rec); err != nil {
			s.close()
			return nil, domain.Internal(err, "persist session")
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session_id", id), zap.String("name", name))
	return s, nil
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NotFound("session %s not found", id)
	}
	return s, nil
}

// Touch marks the session as recently used so the reaper skips it.
func (m *Manager) Touch(ctx context.Context, id string) {
	now := time.Now().UTC()
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		s.lastActive = now
	}
	m.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.Touch(ctx, id, now); err != nil {
			m.logger.Warn("session touch failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdleSessions closes sessions idle past the TTL until ctx ends.
func (m *Manager) ReapIdleSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapOnce()
		}
	}
}

func (m *Manager) reapOnce() {
	cutoff := time.Now().UTC().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		m.logger.Info("session reaped", zap.String("session_id", s.ID))
	}
}

// CloseAll stops every session's actors. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		delete(m.sessions, id)
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
	m.logger.Info("all sessions closed", zap.Int("count", len(all)))
}

func (s *Session) close() {
	s.Combat.Stop()
	s.Deck.Stop()
	s.Rng.Stop()
	s.Events.Close()
}
