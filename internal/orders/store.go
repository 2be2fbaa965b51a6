package orders

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tanbroker/internal/broker"
	"tanbroker/internal/types"

	"github.com/google/uuid"
)

var ErrActionNotFound = errors.New("action not found")

// Action is one validated mutation waiting for, or past, its commit. The
// challenge never leaves the process.
type Action struct {
	ID            string
	Family        broker.MutationKind
	TargetID      string
	Status        types.ActionStatus
	Request       broker.MutationRequest
	Challenge     broker.Challenge
	QuoteTicketID string
	Resource      json.RawMessage
	HTTPStatus    int
	Message       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a Action) pending() bool {
	return a.Status == types.ActionStatusChallenged || a.Status == types.ActionStatusReady
}

// Store keeps actions in memory until they are discarded. An action that was
// taken is invisible to everyone else until it is restored.
type Store struct {
	mu      sync.Mutex
	actions map[string]Action
}

func NewStore() *Store {
	return &Store{actions: make(map[string]Action)}
}

func (s *Store) Put(a Action) Action {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.mu.Lock()
	s.actions[a.ID] = a
	s.mu.Unlock()
	return a
}

func (s *Store) Get(id string) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return Action{}, ErrActionNotFound
	}
	return a, nil
}

// Take removes the action so only one caller can drive its commit.
func (s *Store) Take(id string) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return Action{}, ErrActionNotFound
	}
	delete(s.actions, id)
	return a, nil
}

func (s *Store) Restore(a Action) {
	a.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.actions[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) Delete(id string) (Action, error) {
	return s.Take(id)
}

// Pending counts actions still waiting for a commit or activation.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.actions {
		if a.pending() {
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}
