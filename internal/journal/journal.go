package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is the latest known state of one action. Challenge ids are never
// stored; only the kind of step-up that was asked for.
type Entry struct {
	ActionID      string
	Family        string
	TargetID      string
	ChallengeKind string
	Status        string
	HTTPStatus    int
	Message       string
	At            time.Time
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
}

type Noop struct{}

func (Noop) Record(ctx context.Context, e Entry) error { return nil }

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore keeps one row per action, updated on every transition.
type PGStore struct {
	db execer
}

func NewPGStore(db execer) *PGStore {
	return &PGStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS mutation_journal (
	action_id TEXT PRIMARY KEY,
	family TEXT NOT NULL,
	target_id TEXT NOT NULL DEFAULT '',
	challenge_kind TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	http_status INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

const upsert = `
INSERT INTO mutation_journal (action_id, family, target_id, challenge_kind, status, http_status, message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (action_id) DO UPDATE SET
	challenge_kind = CASE WHEN EXCLUDED.challenge_kind = '' THEN mutation_journal.challenge_kind ELSE EXCLUDED.challenge_kind END,
	status = EXCLUDED.status,
	http_status = EXCLUDED.http_status,
	message = EXCLUDED.message,
	updated_at = EXCLUDED.updated_at`

func (s *PGStore) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, upsert, e.ActionID, e.Family, e.TargetID, e.ChallengeKind, e.Status, e.HTTPStatus, e.Message, at)
	return err
}
