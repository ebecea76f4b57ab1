package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgilks/spf-mcp-sub000/internal/dice"
)

// RollJournal appends roll records to the audit table. Append-only and
// order-insensitive: rows carry their own timestamps and hashes.
type RollJournal struct {
	pool *pgxpool.Pool
}

// NewRollJournal creates a Postgres-backed roll journal.
func NewRollJournal(pool *pgxpool.Pool) *RollJournal {
	return &RollJournal{pool: pool}
}

func (j *RollJournal) Append(ctx context.Context, rec dice.RollRecord) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return err
	}
	var wild []byte
	if rec.Wild != nil {
		wild, err = json.Marshal(rec.Wild)
		if err != nil {
			return err
		}
	}

	_, err = j.pool.Exec(ctx,
		`INSERT INTO roll_journal (id, formula, results, wild, modifier, total, seed, hash, rolled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Formula, results, wild, rec.Modifier, rec.Total, rec.Seed, rec.Hash, rec.RolledAt,
	)
	return err
}

// NoopJournal discards records; used when no database is configured.
type NoopJournal struct{}

func (NoopJournal) Append(context.Context, dice.RollRecord) error { return nil }
