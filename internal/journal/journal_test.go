package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExec struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, f.err
}

func TestPGStore_Record(t *testing.T) {
	t.Parallel()

	db := &fakeExec{}
	s := NewPGStore(db)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := s.Record(context.Background(), Entry{
		ActionID:      "a-1",
		Family:        "create_order",
		ChallengeKind: "photo_tan",
		Status:        "challenged",
		HTTPStatus:    201,
		At:            at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.sql) != 1 || !strings.Contains(db.sql[0], "ON CONFLICT (action_id)") {
		t.Fatalf("expected upsert, got %v", db.sql)
	}
	args := db.args[0]
	if len(args) != 8 || args[0] != "a-1" || args[4] != "challenged" || args[7] != at {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestPGStore_DefaultsTimestamp(t *testing.T) {
	t.Parallel()

	db := &fakeExec{}
	if err := NewPGStore(db).Record(context.Background(), Entry{ActionID: "a-1", Status: "ready"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at, ok := db.args[0][7].(time.Time); !ok || at.IsZero() {
		t.Fatalf("expected timestamp, got %v", db.args[0][7])
	}
}

func TestPGStore_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := NewPGStore(&fakeExec{err: boom})
	if err := s.EnsureSchema(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if err := s.Record(context.Background(), Entry{ActionID: "a"}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
