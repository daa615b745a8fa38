// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// chatRequest is the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	TopP        *float64          `json:"top_p,omitempty"`
	MaxTokens   *int              `json:"max_completion_tokens,omitempty"`
	Tools       []toolSpec        `json:"tools,omitempty"`
	ToolChoice  string            `json:"tool_choice,omitempty"`
	User        string            `json:"user,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"` // string or []contentPart
	Name       string     `json:"name,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest converts framework types into an OpenAI API request.
func buildRequest(messages []af.Message, opts *af.ChatOptions, defaultModel string) *chatRequest {
	req := &chatRequest{
		Model: defaultModel,
	}
	if opts != nil {
		if opts.ModelID != "" {
			req.Model = opts.ModelID
		}
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
		req.User = opts.User
		req.Metadata = opts.Metadata
		req.ToolChoice = string(opts.ToolChoice)

		for _, t := range opts.Tools {
			req.Tools = append(req.Tools, toolSpec{
				Type: "function",
				Function: functionSpec{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}
	}

	req.Messages = convertMessages(messages)
	return req
}

// convertMessages translates framework Messages into OpenAI chat messages.
// Approval requests and responses have no wire form; messages left with
// nothing to send are dropped.
func convertMessages(messages []af.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))

	for _, msg := range messages {
		cm := chatMessage{
			Role: string(msg.Role),
			Name: msg.AuthorName,
		}

		switch msg.Role {
		case af.RoleTool:
			// One tool message per function result.
			for _, c := range msg.Contents {
				if fr, ok := c.(*af.FunctionResultContent); ok {
					resultStr, _ := marshalResult(fr.Result)
					result = append(result, chatMessage{
						Role:       string(af.RoleTool),
						ToolCallID: fr.CallID,
						Content:    resultStr,
					})
				}
			}
			continue

		case af.RoleAssistant:
			var textParts []string
			for _, c := range msg.Contents {
				switch v := c.(type) {
				case *af.TextContent:
					textParts = append(textParts, v.Text)
				case *af.FunctionCallContent:
					cm.ToolCalls = append(cm.ToolCalls, toolCall{
						ID:   v.CallID,
						Type: "function",
						Function: functionCall{
							Name:      v.Name,
							Arguments: v.Arguments,
						},
					})
				}
			}
			if len(textParts) > 0 {
				cm.Content = strings.Join(textParts, "")
			}
			if cm.Content == nil && len(cm.ToolCalls) == 0 {
				continue
			}

		default:
			parts := convertContentParts(msg.Contents)
			switch {
			case len(parts) == 0:
				continue
			case len(parts) == 1:
				cm.Content = parts[0].Text
			default:
				cm.Content = parts
			}
		}

		result = append(result, cm)
	}

	return result
}

// convertContentParts converts framework Content items into OpenAI content parts.
func convertContentParts(contents af.Contents) []contentPart {
	var parts []contentPart
	for _, c := range contents {
		if v, ok := c.(*af.TextContent); ok {
			parts = append(parts, contentPart{Type: "text", Text: v.Text})
		}
	}
	return parts
}

func marshalResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}
