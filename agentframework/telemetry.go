// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// LoggingMiddleware returns an [AgentMiddleware] that logs agent runs using slog.
func LoggingMiddleware(logger *slog.Logger) AgentMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next AgentHandler) AgentHandler {
		return func(ctx context.Context, req *AgentRequest) (*AgentResponse, error) {
			start := time.Now()
			logger.InfoContext(ctx, "agent run started",
				"agent_id", req.AgentID,
				"message_count", len(req.Messages),
			)

			resp, err := next(ctx, req)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "agent run failed",
					"agent_id", req.AgentID,
					"duration", duration,
					"error", err,
				)
				return nil, err
			}

			logger.InfoContext(ctx, "agent run completed",
				"agent_id", req.AgentID,
				"duration", duration,
				"response_messages", len(resp.Messages),
				"pending_approvals", len(resp.ApprovalRequests()),
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
			)
			return resp, nil
		}
	}
}

// ChatLoggingMiddleware returns a [ChatMiddleware] that logs every model call
// at debug level.
func ChatLoggingMiddleware(logger *slog.Logger) ChatMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return func(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error) {
			start := time.Now()
			tools := 0
			if opts != nil {
				tools = len(opts.Tools)
			}

			resp, err := next(ctx, messages, opts)
			if err != nil {
				logger.DebugContext(ctx, "chat request failed",
					"message_count", len(messages),
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}

			logger.DebugContext(ctx, "chat request completed",
				"message_count", len(messages),
				"tools", tools,
				"finish_reason", resp.FinishReason,
				"duration", time.Since(start),
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
			)
			return resp, nil
		}
	}
}

// FunctionCallLoggingMiddleware returns a [FunctionMiddleware] that writes a
// line per tool call to w before invoking it:
//
//	- Tool Call: 'CancelAccount' (Args: [customerId = 42], [reason = moving])
func FunctionCallLoggingMiddleware(w io.Writer) FunctionMiddleware {
	return func(next FunctionHandler) FunctionHandler {
		return func(ctx context.Context, tool Tool, args json.RawMessage) (any, error) {
			fmt.Fprintln(w, FormatToolCall(tool.Name(), args))
			return next(ctx, tool, args)
		}
	}
}

// FormatToolCall renders a tool call as a single human-readable line.
// Arguments are listed in key order.
func FormatToolCall(name string, args json.RawMessage) string {
	var m map[string]any
	if len(args) > 0 {
		_ = json.Unmarshal(args, &m)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("[%s = %v]", k, m[k]))
	}
	return fmt.Sprintf("- Tool Call: '%s' (Args: %s)", name, strings.Join(parts, ", "))
}
