// Copyright (c) Microsoft. All rights reserved.

package history

import (
	"context"
	"sync"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// MemoryBackend keeps history in process memory. It is lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	threads map[string][]af.Message
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{threads: make(map[string][]af.Message)}
}

func (b *MemoryBackend) Append(_ context.Context, key string, msgs []af.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threads[key] = append(b.threads[key], msgs...)
	return nil
}

func (b *MemoryBackend) Recent(_ context.Context, key string, n int) ([]af.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tail(b.threads[key], n), nil
}
