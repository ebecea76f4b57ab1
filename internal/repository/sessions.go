package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgilks/spf-mcp-sub000/internal/domain"
	"github.com/rgilks/spf-mcp-sub000/internal/session"
)

// SessionRepository persists session records in Postgres.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a Postgres-backed session store.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, rec session.Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Name, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (session.Record, error) {
	var rec session.Record
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Record{}, domain.NotFound("session %s not found", id)
	}
	return rec, err
}

func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET updated_at = $2 WHERE id = $1`, id, at,
	)
	return err
}

func (r *SessionRepository) List(ctx context.Context) ([]session.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM sessions ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Record
	for rows.Next() {
		var rec session.Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MemorySessionRepository is the in-memory fallback used when no database
// is configured.
type MemorySessionRepository struct {
	mu   sync.RWMutex
	recs map[string]session.Record
}

// NewMemorySessionRepository creates an empty in-memory store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{recs: make(map[string]session.Record)}
}

func (r *MemorySessionRepository) Create(_ context.Context, rec session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.ID] = rec
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return session.Record{}, domain.NotFound("session %s not found", id)
	}
	return rec, nil
}

func (r *MemorySessionRepository) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[id]; ok {
		rec.UpdatedAt = at
		r.recs[id] = rec
	}
	return nil
}

func (r *MemorySessionRepository) List(_ context.Context) ([]session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]session.Record, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
