// Package chat implements the client side of a Smart Guide conversation: the
// in-memory message store, the relay client and the orchestrator that drives
// one streamed turn at a time.
package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/smartguide/smartguide/pkg/llm"
)

// ErrTurnInProgress is returned when a second streaming turn is started while
// one is still in progress.
var ErrTurnInProgress = errors.New("chat: a turn is already in progress")

// Turn is one role-tagged message of a conversation.
type Turn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// InProgress is set on the assistant turn that is still being streamed.
	InProgress bool `json:"-"`
}

// Store is an ordered, in-memory conversation. Insertion order is display
// order. At most one turn is in progress at a time. Store is safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns []*Turn
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a finalized turn and returns a copy of it.
func (s *Store) Append(role, content string) Turn {
	t := &Turn{ID: uuid.NewString(), Role: role, Content: content}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()

	return *t
}

// BeginAssistant appends an empty in-progress assistant turn.
func (s *Store) BeginAssistant() (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inProgressLocked() != nil {
		return Turn{}, ErrTurnInProgress
	}

	t := &Turn{ID: uuid.NewString(), Role: llm.RoleAssistant, InProgress: true}
	s.turns = append(s.turns, t)
	return *t, nil
}

// AppendDelta appends text to the in-progress turn with the given ID. It
// reports false if that turn is gone or already finalized.
func (s *Store) AppendDelta(id, delta string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.inProgressLocked()
	if t == nil || t.ID != id {
		return false
	}
	t.Content += delta
	return true
}

// Finalize marks the in-progress turn with the given ID as complete.
func (s *Store) Finalize(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.inProgressLocked()
	if t == nil || t.ID != id {
		return false
	}
	t.InProgress = false
	return true
}

// Discard removes the in-progress turn with the given ID.
func (s *Store) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].ID == id && s.turns[i].InProgress {
			s.turns = append(s.turns[:i], s.turns[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns a copy of all turns in display order.
func (s *Store) Messages() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = *t
	}
	return out
}

// History returns the finalized turns as wire messages for the relay.
func (s *Store) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]llm.Message, 0, len(s.turns))
	for _, t := range s.turns {
		if t.InProgress {
			continue
		}
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// InProgress reports whether a turn is currently being streamed.
func (s *Store) InProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inProgressLocked() != nil
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear removes every turn, including one in progress.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

func (s *Store) inProgressLocked() *Turn {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].InProgress {
			return s.turns[i]
		}
	}
	return nil
}
