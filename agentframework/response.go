// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"strings"
	"time"
)

// ChatResponse is the complete response from a [ChatClient].
type ChatResponse struct {
	Messages       []Message
	ResponseID     string
	ConversationID string
	ModelID        string
	CreatedAt      time.Time
	FinishReason   FinishReason
	Usage          UsageDetails
	Extra          map[string]any
	Raw            any
}

// Text returns the concatenated text of all messages in this response.
func (r *ChatResponse) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// AgentResponse is the complete response from an [Agent] run.
type AgentResponse struct {
	Messages       []Message
	ResponseID     string
	AgentID        string
	ConversationID string
	CreatedAt      time.Time
	Usage          UsageDetails
	Extra          map[string]any
	Raw            any
}

// Text returns the concatenated text of all messages in this agent response.
func (r *AgentResponse) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// ApprovalRequests returns the pending [ApprovalRequestContent] items across
// messages, in the order the service produced them.
func (r *AgentResponse) ApprovalRequests() []*ApprovalRequestContent {
	var reqs []*ApprovalRequestContent
	for _, m := range r.Messages {
		for _, c := range m.Contents {
			if ar, ok := c.(*ApprovalRequestContent); ok {
				reqs = append(reqs, ar)
			}
		}
	}
	return reqs
}
