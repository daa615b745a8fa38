// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// RejectedToolCallResult is the tool result reported to the model for a call
// whose approval was denied.
const RejectedToolCallResult = "Tool call invocation rejected."

// resolveApprovalResponses replaces the [ApprovalResponseContent] items in
// messages with the exchange the model expects: one assistant message holding
// the original function calls, followed by one tool message per call.
// Approved calls are invoked; rejected calls get [RejectedToolCallResult].
// Messages left without contents are dropped.
func resolveApprovalResponses(
	ctx context.Context,
	messages []Message,
	tools []Tool,
	config InvocationConfig,
	fnMiddleware []FunctionMiddleware,
) []Message {
	var responses []*ApprovalResponseContent
	var rest []Message
	for _, m := range messages {
		kept := make(Contents, 0, len(m.Contents))
		for _, c := range m.Contents {
			if r, ok := c.(*ApprovalResponseContent); ok {
				responses = append(responses, r)
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			continue
		}
		m.Contents = kept
		rest = append(rest, m)
	}
	if len(responses) == 0 {
		return messages
	}

	config = config.withDefaults()
	toolMap := toolsByName(tools)

	calls := Message{Role: RoleAssistant, Contents: make(Contents, 0, len(responses))}
	results := make([]Message, 0, len(responses))
	for _, r := range responses {
		calls.Contents = append(calls.Contents, r.FunctionCall())
		results = append(results, NewToolMessage(r.CallID, approvalResult(ctx, r, toolMap, config, fnMiddleware)))
	}

	out := make([]Message, 0, len(rest)+1+len(results))
	out = append(out, calls)
	out = append(out, results...)
	out = append(out, rest...)
	return out
}

func approvalResult(ctx context.Context, r *ApprovalResponseContent, toolMap map[string]Tool, config InvocationConfig, fnMiddleware []FunctionMiddleware) any {
	if !r.Approved {
		slog.InfoContext(ctx, "tool call rejected", "tool", r.Name, "call_id", r.CallID)
		if reason := strings.TrimSpace(r.Reason); reason != "" {
			return RejectedToolCallResult + " " + reason
		}
		return RejectedToolCallResult
	}

	tool, ok := toolMap[r.Name]
	if !ok {
		slog.WarnContext(ctx, "approved call targets unknown tool", "tool", r.Name)
		return "error: unknown tool"
	}
	result, err := invokeToolWithMiddleware(ctx, tool, json.RawMessage(r.Arguments), fnMiddleware)
	if err != nil {
		slog.WarnContext(ctx, "approved tool invocation error", "tool", r.Name, "error", err)
		return toolErrorResult(err, config)
	}
	return result
}

// stripApprovalContents removes approval requests and responses from stored
// history. Models only understand the function call form of an exchange.
func stripApprovalContents(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		kept := make(Contents, 0, len(m.Contents))
		for _, c := range m.Contents {
			switch c.(type) {
			case *ApprovalRequestContent, *ApprovalResponseContent:
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			continue
		}
		m.Contents = kept
		out = append(out, m)
	}
	return out
}
