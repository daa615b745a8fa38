// Copyright (c) Microsoft. All rights reserved.

// Package registry maps agent roles and ids to live agent handles.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/tools"
)

var (
	// ErrAgentNotFound is returned when an explicit agent id is unknown.
	ErrAgentNotFound = fmt.Errorf("%w: agent", af.ErrNotFound)

	// ErrSelectorRequired is returned when neither an id nor a role is given.
	ErrSelectorRequired = fmt.Errorf("%w: agent id or agent type is required", af.ErrValidation)
)

// Registry resolves an agent by explicit id, or creates one for a role.
// The id always wins over the role.
type Registry interface {
	GetOrCreate(ctx context.Context, id, roleType string) (*Handle, error)
}

// FileSearch is the vector-store binding of an agent.
type FileSearch struct {
	VectorStoreID string
	MaxNumResults int
}

// Handle is a resolved agent.
type Handle struct {
	ID           string
	Name         string
	Instructions string
	Tools        []af.ToolDefinition
	FileSearch   *FileSearch
	Agent        *af.Agent
}

// Option configures a registry.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	toolOutput io.Writer
	agentOpts  []af.AgentOption
}

// WithLogger sets the logger used by the registry and its agents.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithToolCallOutput writes a line per tool call to w.
func WithToolCallOutput(w io.Writer) Option {
	return func(o *options) { o.toolOutput = w }
}

// WithAgentOptions appends options to every agent the registry builds.
func WithAgentOptions(opts ...af.AgentOption) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, opts...) }
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// agentOptions returns the options shared by every agent built by a registry.
func (o options) agentOptions(h *Handle, local []af.Tool) []af.AgentOption {
	out := []af.AgentOption{
		af.WithID(h.ID),
		af.WithName(h.Name),
		af.WithTools(local...),
		af.WithAgentMiddleware(af.LoggingMiddleware(o.logger)),
	}
	if o.toolOutput != nil {
		out = append(out, af.WithFunctionMiddleware(af.FunctionCallLoggingMiddleware(o.toolOutput)))
	}
	return append(out, o.agentOpts...)
}

// roleSettings looks up the role and resolves its function tool tables.
func roleSettings(cfg *config.AgentConfiguration, roleType string) (config.AgentSettings, []af.Tool, error) {
	if strings.TrimSpace(roleType) == "" {
		return config.AgentSettings{}, nil, ErrSelectorRequired
	}
	settings, err := cfg.GetAgent(roleType)
	if err != nil {
		return config.AgentSettings{}, nil, err
	}
	var local []af.Tool
	if settings.Tools != nil && len(settings.Tools.Functions) > 0 {
		local, err = tools.Resolve(settings.Tools.Functions...)
		if err != nil {
			return config.AgentSettings{}, nil, fmt.Errorf("agent %s: %w", roleType, err)
		}
	}
	if settings.Name == "" {
		settings.Name = roleType
	}
	return settings, local, nil
}

func fileSearchOf(settings config.AgentSettings) *FileSearch {
	if settings.Tools == nil || settings.Tools.VectorStores == nil || settings.Tools.VectorStores.VectorStoreID == "" {
		return nil
	}
	return &FileSearch{
		VectorStoreID: settings.Tools.VectorStores.VectorStoreID,
		MaxNumResults: settings.Tools.VectorStores.MaxNumResults,
	}
}

func definitions(ts []af.Tool) []af.ToolDefinition {
	defs := make([]af.ToolDefinition, 0, len(ts))
	for _, t := range ts {
		defs = append(defs, af.DefinitionOf(t))
	}
	return defs
}
