// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"sync"
)

// MessageStore persists conversation messages for a [Session].
type MessageStore interface {
	// ListMessages returns all stored messages in order.
	ListMessages(ctx context.Context) ([]Message, error)

	// AddMessages appends messages to the store.
	AddMessages(ctx context.Context, msgs []Message) error

	// Serialize returns the store's state as JSON.
	Serialize() (json.RawMessage, error)
}

// StoreRestorer is implemented by message stores that can reload the output
// of [MessageStore.Serialize].
type StoreRestorer interface {
	Restore(state json.RawMessage) error
}

// InMemoryStore is a simple in-memory [MessageStore].
type InMemoryStore struct {
	mu       sync.Mutex
	messages []Message
}

type inMemoryState struct {
	Messages []Message `json:"messages"`
}

// NewInMemoryStore creates an empty [InMemoryStore].
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) ListMessages(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	return cp, nil
}

func (s *InMemoryStore) AddMessages(_ context.Context, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	return nil
}

func (s *InMemoryStore) Serialize() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(inMemoryState{Messages: msgs})
}

// Restore replaces the stored messages with the serialized state.
func (s *InMemoryStore) Restore(state json.RawMessage) error {
	var st inMemoryState
	if err := json.Unmarshal(state, &st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = st.Messages
	return nil
}
