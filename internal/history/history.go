// Copyright (c) Microsoft. All rights reserved.

// Package history keeps the chat history of locally managed threads outside
// the persisted thread state. A thread state carries only its history key,
// and a resumed thread sees a bounded window of its most recent messages.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// DefaultWindow is the number of recent messages a resumed thread sees.
const DefaultWindow = 10

// Backend stores messages under a history key.
type Backend interface {
	// Append adds msgs after the messages already stored under key.
	Append(ctx context.Context, key string, msgs []af.Message) error

	// Recent returns up to n of the newest messages under key, oldest
	// first. n <= 0 returns all of them.
	Recent(ctx context.Context, key string, n int) ([]af.Message, error)
}

// Store is an [af.MessageStore] over a [Backend]. It serializes to its key
// as a JSON string.
type Store struct {
	backend Backend
	window  int

	mu  sync.Mutex
	key string
}

var (
	_ af.MessageStore  = (*Store)(nil)
	_ af.StoreRestorer = (*Store)(nil)
)

// NewStore returns a store with a fresh key.
func NewStore(b Backend, window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		backend: b,
		window:  window,
		key:     strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// Factory returns a constructor for [af.WithMessageStoreFactory].
func Factory(b Backend, window int) func() af.MessageStore {
	return func() af.MessageStore { return NewStore(b, window) }
}

// Key returns the history key.
func (s *Store) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// ListMessages returns the recent window, oldest first. The window never
// opens on a tool result whose call fell outside it.
func (s *Store) ListMessages(ctx context.Context) ([]af.Message, error) {
	msgs, err := s.backend.Recent(ctx, s.Key(), s.window)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for len(msgs) > 0 && msgs[0].Role == af.RoleTool {
		msgs = msgs[1:]
	}
	return msgs, nil
}

func (s *Store) AddMessages(ctx context.Context, msgs []af.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.backend.Append(ctx, s.Key(), msgs); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) Serialize() (json.RawMessage, error) {
	return json.Marshal(s.Key())
}

// Restore points the store at the key serialized earlier.
func (s *Store) Restore(state json.RawMessage) error {
	var key string
	if err := json.Unmarshal(state, &key); err != nil {
		return fmt.Errorf("%w: history state is not a key: %w", af.ErrSession, err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: history key is empty", af.ErrSession)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	return nil
}

// tail copies the last n messages, or all of them when n <= 0.
func tail(msgs []af.Message, n int) []af.Message {
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]af.Message(nil), msgs...)
}
