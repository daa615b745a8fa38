// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// CreateAgentRequest describes a Persistent Agent to create.
type CreateAgentRequest struct {
	Model         string            `json:"model"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Instructions  string            `json:"instructions,omitempty"`
	Tools         []ToolSpec        `json:"tools,omitempty"`
	ToolResources *ToolResources    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// FileSearchTool returns the file search tool spec limited to maxResults
// chunks per query. Zero leaves the service default.
func FileSearchTool(maxResults int) ToolSpec {
	return ToolSpec{Type: "file_search", FileSearch: &FileSearchSpec{MaxNumResults: maxResults}}
}

// FunctionTool declares a client-side function on the agent.
func FunctionTool(def af.ToolDefinition) ToolSpec {
	return ToolSpec{Type: "function", Function: &FunctionSpec{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  def.Parameters,
	}}
}

// CreateAgent creates a Persistent Agent.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (*Agent, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("%w: model deployment name is required", af.ErrValidation)
	}
	var agent Agent
	if err := c.tp.do(ctx, http.MethodPost, "/assistants", nil, req, &agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &agent, nil
}

// GetAgent fetches an agent by id. A missing agent yields an error matching
// [af.ErrNotFound].
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := c.tp.do(ctx, http.MethodGet, "/assistants/"+url.PathEscape(id), nil, nil, &agent); err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &agent, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	var status deletionStatus
	if err := c.tp.do(ctx, http.MethodDelete, "/assistants/"+url.PathEscape(id), nil, nil, &status); err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}
