// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// AgentChatClient runs one Persistent Agent as an [af.ChatClient]. The
// service keeps the conversation: the thread id travels in
// [af.ChatOptions.ConversationID] and is returned in
// [af.ChatResponse.ConversationID].
//
// Instructions and tool declarations live on the hosted agent. System
// messages and the tools in ChatOptions are not sent.
type AgentChatClient struct {
	client  *Client
	agentID string
}

// ChatClient binds the client to one agent.
func (c *Client) ChatClient(agentID string) *AgentChatClient {
	return &AgentChatClient{client: c, agentID: agentID}
}

// AgentID returns the bound agent id.
func (c *AgentChatClient) AgentID() string { return c.agentID }

// Response implements [af.ChatClient].
//
// Trailing tool messages are submitted as outputs of the thread's pending
// run. Otherwise the user messages are posted and a new run is started. The
// run is polled until it completes or asks for function calls.
func (c *AgentChatClient) Response(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	threadID := ""
	if opts != nil {
		threadID = opts.ConversationID
	}
	if threadID == "" {
		thread, err := c.client.CreateThread(ctx)
		if err != nil {
			return nil, err
		}
		threadID = thread.ID
	}

	var run *Run
	var err error
	if outputs := trailingToolOutputs(messages); len(outputs) > 0 {
		run, err = c.submit(ctx, threadID, outputs)
	} else {
		run, err = c.start(ctx, threadID, messages)
	}
	if err != nil {
		return nil, err
	}

	run, err = c.client.PollRun(ctx, run)
	if err != nil {
		return nil, err
	}
	return c.toResponse(ctx, threadID, run)
}

func (c *AgentChatClient) start(ctx context.Context, threadID string, messages []af.Message) (*Run, error) {
	for _, m := range messages {
		if m.Role != af.RoleUser {
			continue
		}
		text := m.Text()
		if text == "" {
			continue
		}
		if _, err := c.client.CreateMessage(ctx, threadID, text); err != nil {
			return nil, err
		}
	}
	return c.client.CreateRun(ctx, threadID, c.agentID)
}

func (c *AgentChatClient) submit(ctx context.Context, threadID string, outputs []ToolOutput) (*Run, error) {
	pending, err := c.client.LatestRun(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Status != RunRequiresAction {
		return nil, fmt.Errorf("%w: thread %s has no run waiting for tool outputs", af.ErrInvalidRequest, threadID)
	}
	return c.client.SubmitToolOutputs(ctx, threadID, pending.ID, outputs)
}

func (c *AgentChatClient) toResponse(ctx context.Context, threadID string, run *Run) (*af.ChatResponse, error) {
	resp := &af.ChatResponse{
		ResponseID:     run.ID,
		ConversationID: threadID,
		ModelID:        c.agentID,
		CreatedAt:      unixTime(run.CreatedAt),
		Usage:          runUsage(run.Usage),
		Raw:            run,
	}

	switch run.Status {
	case RunRequiresAction:
		if run.RequiredAction == nil {
			return nil, fmt.Errorf("%w: run %s requires action without tool calls", af.ErrInvalidResponse, run.ID)
		}
		calls := make(af.Contents, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			calls = append(calls, &af.FunctionCallContent{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		resp.Messages = []af.Message{{Role: af.RoleAssistant, Contents: calls, CreatedAt: resp.CreatedAt}}
		resp.FinishReason = af.FinishReasonToolCalls
		return resp, nil

	case RunCompleted:
		msgs, err := c.client.ListMessages(ctx, threadID, run.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.Role != string(af.RoleAssistant) {
				continue
			}
			resp.Messages = append(resp.Messages, toMessage(m))
		}
		resp.FinishReason = af.FinishReasonStop
		return resp, nil

	default:
		return nil, runError(run)
	}
}

func runError(run *Run) error {
	svcErr := &af.ServiceError{
		Message: fmt.Sprintf("run %s ended with status %s", run.ID, run.Status),
		Err:     af.ErrService,
	}
	if run.LastError != nil {
		svcErr.Code = run.LastError.Code
		if run.LastError.Message != "" {
			svcErr.Message = run.LastError.Message
		}
	}
	return svcErr
}

func toMessage(m ThreadMessage) af.Message {
	msg := af.Message{
		Role:       af.RoleAssistant,
		MessageID:  m.ID,
		AuthorName: m.AssistantID,
		CreatedAt:  unixTime(m.CreatedAt),
		Raw:        m,
	}
	for _, part := range m.Content {
		if part.Type != "text" || part.Text == nil {
			continue
		}
		msg.Contents = append(msg.Contents, &af.TextContent{Text: part.Text.Value})
		for _, a := range part.Text.Annotations {
			if a.FileCitation != nil {
				msg.Contents = append(msg.Contents, &af.HostedFileContent{
					FileID: a.FileCitation.FileID,
					Quote:  a.FileCitation.Quote,
				})
			}
		}
	}
	return msg
}

// trailingToolOutputs collects the function results at the end of messages.
func trailingToolOutputs(messages []af.Message) []ToolOutput {
	start := len(messages)
	for start > 0 && messages[start-1].Role == af.RoleTool {
		start--
	}
	var outputs []ToolOutput
	for _, m := range messages[start:] {
		for _, c := range m.Contents {
			if fr, ok := c.(*af.FunctionResultContent); ok {
				outputs = append(outputs, ToolOutput{ToolCallID: fr.CallID, Output: outputString(fr.Result)})
			}
		}
	}
	return outputs
}

func outputString(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case error:
		return r.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func runUsage(u *RunUsage) af.UsageDetails {
	if u == nil {
		return af.UsageDetails{}
	}
	return af.UsageDetails{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
