// Copyright (c) Microsoft. All rights reserved.

package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/config"
)

// Local builds in-process agents over a chat completions client. Agents live
// as long as the registry; ids are not valid across restarts.
type Local struct {
	client af.ChatClient
	cfg    *config.AgentConfiguration
	opts   options

	mu     sync.RWMutex
	agents map[string]*Handle
}

var _ Registry = (*Local)(nil)

// NewLocal returns a registry building agents on client.
func NewLocal(client af.ChatClient, cfg *config.AgentConfiguration, opts ...Option) *Local {
	return &Local{
		client: client,
		cfg:    cfg,
		opts:   newOptions(opts),
		agents: make(map[string]*Handle),
	}
}

func (r *Local) GetOrCreate(ctx context.Context, id, roleType string) (*Handle, error) {
	if id = strings.TrimSpace(id); id != "" {
		r.mu.RLock()
		defer r.mu.RUnlock()
		h, ok := r.agents[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
		}
		return h, nil
	}

	settings, local, err := roleSettings(r.cfg, roleType)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		ID:           uuid.NewString(),
		Name:         settings.Name,
		Instructions: settings.Instructions,
		Tools:        definitions(local),
		FileSearch:   fileSearchOf(settings),
	}
	if h.FileSearch != nil {
		r.opts.logger.WarnContext(ctx, "file search is not available on the chat completions backend",
			"agent_type", roleType, "vector_store_id", h.FileSearch.VectorStoreID)
	}
	opts := append(r.opts.agentOptions(h, local), af.WithInstructions(settings.Instructions))
	h.Agent = af.NewAgent(r.client, opts...)

	r.mu.Lock()
	r.agents[h.ID] = h
	r.mu.Unlock()
	r.opts.logger.InfoContext(ctx, "agent created", "agent_id", h.ID, "agent_type", roleType, "tools", len(h.Tools))
	return h, nil
}
