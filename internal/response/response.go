// Copyright (c) Microsoft. All rights reserved.

// Package response maps agent runs to the payload returned to callers.
package response

import (
	"fmt"
	"strings"
	"time"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/console"
)

// Role is the author role of a returned message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// AgentResponse is the result of one ask.
type AgentResponse struct {
	AgentID   string      `json:"agentId"`
	ThreadID  string      `json:"threadId"`
	CreatedAt time.Time   `json:"createdAt"`
	Messages  []Message   `json:"messages"`
	Usage     *TokenUsage `json:"usage,omitempty"`
}

// Message is one message produced by a run.
type Message struct {
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	Role       Role      `json:"role"`
	MessageID  string    `json:"messageId"`
	Content    string    `json:"content"`
}

// TokenUsage reports token consumption of a run.
type TokenUsage struct {
	InputTokenCount  int            `json:"inputTokenCount"`
	OutputTokenCount int            `json:"outputTokenCount"`
	TotalTokenCount  int            `json:"totalTokenCount"`
	AdditionalCounts map[string]int `json:"additionalCounts,omitempty"`
}

// Text joins the content of every message.
func (r *AgentResponse) Text() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

var now = func() time.Time { return time.Now().UTC() }

// FromAgentRun maps a run result. Missing timestamps are set to now.
func FromAgentRun(run *af.AgentResponse, threadID string) *AgentResponse {
	out := &AgentResponse{
		AgentID:   run.AgentID,
		ThreadID:  threadID,
		CreatedAt: orNow(run.CreatedAt),
		Messages:  make([]Message, 0, len(run.Messages)),
	}
	if !run.Usage.IsZero() {
		out.Usage = &TokenUsage{
			InputTokenCount:  run.Usage.InputTokens,
			OutputTokenCount: run.Usage.OutputTokens,
			TotalTokenCount:  run.Usage.TotalTokens,
			AdditionalCounts: run.Usage.AdditionalCounts,
		}
	}
	for _, m := range run.Messages {
		out.Messages = append(out.Messages, Message{
			AuthorName: m.AuthorName,
			CreatedAt:  orNow(m.CreatedAt),
			Role:       mapRole(m.Role),
			MessageID:  m.MessageID,
			Content:    textOf(m.Contents),
		})
	}
	return out
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return now()
	}
	return t
}

func mapRole(r af.Role) Role {
	switch strings.ToLower(string(r)) {
	case "assistant":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "tool":
		return RoleTool
	default:
		return RoleUser
	}
}

// textOf joins the text carried by each content item with a space.
func textOf(contents af.Contents) string {
	var parts []string
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	for _, c := range contents {
		switch v := c.(type) {
		case *af.TextContent:
			add(v.Text)
		case *af.ErrorContent:
			add(v.Message)
		case *af.FunctionResultContent:
			if s, ok := v.Result.(string); ok {
				add(s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// LogTokenUsage writes the token usage block of a response.
func LogTokenUsage(c *console.Console, r *AgentResponse) {
	if r == nil {
		return
	}
	var in, out string
	if r.Usage != nil {
		in = fmt.Sprint(r.Usage.InputTokenCount)
		out = fmt.Sprint(r.Usage.OutputTokenCount)
	}
	c.Divider()
	c.PrimaryLine("Token Usage")
	c.SecondaryLine("- Input Tokens: " + in)
	c.SecondaryLine("- Output Tokens: " + out)
	c.Divider()
}
