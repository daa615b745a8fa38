// Copyright (c) Microsoft. All rights reserved.

package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/foundry"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/tools"
)

// fetchTimeout bounds a shared agent fetch.
const fetchTimeout = 30 * time.Second

// Foundry resolves Persistent Agents hosted by an Azure AI Foundry project.
type Foundry struct {
	client     *foundry.Client
	cfg        *config.AgentConfiguration
	deployment string
	opts       options

	mu    sync.RWMutex
	cache map[string]*Handle
	group singleflight.Group
}

var _ Registry = (*Foundry)(nil)

// NewFoundry returns a registry creating agents on the given deployment.
func NewFoundry(client *foundry.Client, cfg *config.AgentConfiguration, deployment string, opts ...Option) *Foundry {
	return &Foundry{
		client:     client,
		cfg:        cfg,
		deployment: deployment,
		opts:       newOptions(opts),
		cache:      make(map[string]*Handle),
	}
}

// GetOrCreate fetches the agent with the given id, or creates a new agent for
// roleType when id is empty.
func (r *Foundry) GetOrCreate(ctx context.Context, id, roleType string) (*Handle, error) {
	if id = strings.TrimSpace(id); id != "" {
		return r.get(ctx, id)
	}
	return r.create(ctx, roleType)
}

func (r *Foundry) get(ctx context.Context, id string) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	// The shared fetch is detached from the caller that started it; each
	// caller stops waiting on its own context.
	ch := r.group.DoChan(id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		agent, err := r.client.GetAgent(fctx, id)
		if err != nil {
			if errors.Is(err, af.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
			}
			return nil, err
		}
		return r.store(r.fromAgent(agent)), nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Foundry) create(ctx context.Context, roleType string) (*Handle, error) {
	settings, local, err := roleSettings(r.cfg, roleType)
	if err != nil {
		return nil, err
	}

	req := foundry.CreateAgentRequest{
		Model:        r.deployment,
		Name:         settings.Name,
		Instructions: settings.Instructions,
		Metadata:     map[string]string{"agentType": roleType},
	}
	if fs := fileSearchOf(settings); fs != nil {
		req.Tools = append(req.Tools, foundry.FileSearchTool(fs.MaxNumResults))
		req.ToolResources = &foundry.ToolResources{
			FileSearch: &foundry.FileSearchResources{VectorStoreIDs: []string{fs.VectorStoreID}},
		}
	}
	for _, t := range local {
		req.Tools = append(req.Tools, foundry.FunctionTool(af.DefinitionOf(t)))
	}

	agent, err := r.client.CreateAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	r.opts.logger.InfoContext(ctx, "agent created", "agent_id", agent.ID, "agent_type", roleType, "tools", len(req.Tools))
	return r.store(r.build(agent, local)), nil
}

// fromAgent rebuilds a handle for an agent created earlier, binding its
// function tools to the local implementations by name.
func (r *Foundry) fromAgent(agent *foundry.Agent) *Handle {
	var local []af.Tool
	for _, spec := range agent.Tools {
		if spec.Type != "function" || spec.Function == nil {
			continue
		}
		t, ok := tools.Lookup(spec.Function.Name)
		if !ok {
			r.opts.logger.Warn("agent declares a function with no local implementation",
				"agent_id", agent.ID, "function", spec.Function.Name)
			continue
		}
		local = append(local, t)
	}
	return r.build(agent, local)
}

func (r *Foundry) build(agent *foundry.Agent, local []af.Tool) *Handle {
	h := &Handle{
		ID:           agent.ID,
		Name:         agent.Name,
		Instructions: agent.Instructions,
		Tools:        definitions(local),
	}
	for _, spec := range agent.Tools {
		if spec.Type != "file_search" {
			continue
		}
		fs := &FileSearch{}
		if spec.FileSearch != nil {
			fs.MaxNumResults = spec.FileSearch.MaxNumResults
		}
		if res := agent.ToolResources; res != nil && res.FileSearch != nil && len(res.FileSearch.VectorStoreIDs) > 0 {
			fs.VectorStoreID = res.FileSearch.VectorStoreIDs[0]
		}
		h.FileSearch = fs
	}
	h.Agent = af.NewAgent(r.client.ChatClient(agent.ID), r.opts.agentOptions(h, local)...)
	return h
}

func (r *Foundry) store(h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[h.ID]; ok {
		return cached
	}
	r.cache[h.ID] = h
	return h
}
