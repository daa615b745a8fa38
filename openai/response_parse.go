// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"
	"time"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// chatCompletionResponse is the OpenAI Chat Completions API response.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      respMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type respMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type usage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
}

// parseChatResponse converts the OpenAI response into framework types.
func parseChatResponse(raw *chatCompletionResponse) *af.ChatResponse {
	resp := &af.ChatResponse{
		ResponseID: raw.ID,
		ModelID:    raw.Model,
	}
	if raw.Created > 0 {
		resp.CreatedAt = time.Unix(raw.Created, 0).UTC()
	}

	if raw.Usage != nil {
		resp.Usage = parseUsage(raw.Usage)
	}

	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		resp.FinishReason = mapFinishReason(c.FinishReason)

		role := af.Role(c.Message.Role)
		if role == "" {
			role = af.RoleAssistant
		}
		msg := af.Message{
			Role:      role,
			MessageID: raw.ID,
			CreatedAt: resp.CreatedAt,
		}

		if c.Message.Content != nil && *c.Message.Content != "" {
			msg.Contents = append(msg.Contents, &af.TextContent{Text: *c.Message.Content})
		}

		for _, tc := range c.Message.ToolCalls {
			msg.Contents = append(msg.Contents, &af.FunctionCallContent{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		resp.Messages = []af.Message{msg}
	}

	return resp
}

func parseUsage(u *usage) af.UsageDetails {
	d := af.UsageDetails{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	extra := map[string]int{}
	if u.PromptTokensDetails != nil && u.PromptTokensDetails.CachedTokens > 0 {
		extra["cachedInputTokens"] = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil && u.CompletionTokensDetails.ReasoningTokens > 0 {
		extra["reasoningTokens"] = u.CompletionTokensDetails.ReasoningTokens
	}
	if len(extra) > 0 {
		d.AdditionalCounts = extra
	}
	return d
}

// unmarshalChatResponse parses the JSON response body.
func unmarshalChatResponse(data []byte) (*chatCompletionResponse, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func mapFinishReason(s string) af.FinishReason {
	switch s {
	case "stop":
		return af.FinishReasonStop
	case "length":
		return af.FinishReasonLength
	case "tool_calls":
		return af.FinishReasonToolCalls
	case "content_filter":
		return af.FinishReasonContentFilter
	default:
		return af.FinishReason(s)
	}
}
