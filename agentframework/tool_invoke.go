// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// InvocationConfig controls the function invocation loop behavior.
type InvocationConfig struct {
	// MaxIterations is the maximum number of LLM round-trips for tool calling.
	// Default: 40.
	MaxIterations int

	// MaxConsecutiveErrors is the maximum number of consecutive tool errors
	// before aborting. Default: 3.
	MaxConsecutiveErrors int

	// TerminateOnUnknown aborts if the model calls an unknown tool.
	TerminateOnUnknown bool

	// IncludeDetailedErrors includes full error text in tool results sent
	// back to the model. When false, a generic error message is used.
	IncludeDetailedErrors bool
}

// DefaultInvocationConfig returns the default configuration.
func DefaultInvocationConfig() InvocationConfig {
	return InvocationConfig{
		MaxIterations:        40,
		MaxConsecutiveErrors: 3,
	}
}

func (c InvocationConfig) withDefaults() InvocationConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 40
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = 3
	}
	return c
}

// invokeFunctions runs the tool-calling loop: extract function_call content
// from the response, invoke matched tools, append results, and re-call the LLM.
//
// When any call in a model turn targets a tool that needs approval, none of
// that turn's calls run. They come back as [ApprovalRequestContent] instead,
// and the caller resolves them in a later run.
func invokeFunctions(
	ctx context.Context,
	client ChatClient,
	messages []Message,
	opts *ChatOptions,
	config InvocationConfig,
	fnMiddleware []FunctionMiddleware,
) (*ChatResponse, error) {
	config = config.withDefaults()
	toolMap := toolsByName(opts.Tools)

	// The first turn may open a server-side conversation that later turns continue.
	turnOpts := *opts
	var usage UsageDetails
	invocations := make(map[string]int)
	consecutiveErrors := 0

	for iteration := 0; iteration < config.MaxIterations; iteration++ {
		resp, err := client.Response(ctx, messages, &turnOpts)
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)
		if resp.ConversationID != "" {
			turnOpts.ConversationID = resp.ConversationID
		}

		calls := extractFunctionCalls(resp)
		if len(calls) == 0 {
			resp.Usage = usage
			return resp, nil
		}

		if needsApproval(calls, toolMap) {
			slog.DebugContext(ctx, "tool calls awaiting approval", "count", len(calls))
			resp.Messages = replaceCallsWithApprovalRequests(resp.Messages)
			resp.Usage = usage
			return resp, nil
		}

		var resultMessages []Message
		for _, call := range calls {
			tool, ok := toolMap[call.Name]
			if !ok {
				if config.TerminateOnUnknown {
					return nil, fmt.Errorf("%w: unknown tool %q", ErrToolExecution, call.Name)
				}
				slog.WarnContext(ctx, "unknown tool called", "tool", call.Name)
				resultMessages = append(resultMessages, NewToolMessage(call.CallID, "error: unknown tool"))
				consecutiveErrors++
				continue
			}

			if tool.DeclarationOnly() {
				resp.Usage = usage
				return resp, nil
			}

			invocations[call.Name]++
			if limit := maxInvocations(tool); limit > 0 && invocations[call.Name] > limit {
				resultMessages = append(resultMessages, NewToolMessage(call.CallID,
					fmt.Sprintf("error: tool %q exceeded its invocation limit", call.Name)))
				continue
			}

			result, invokeErr := invokeToolWithMiddleware(ctx, tool, json.RawMessage(call.Arguments), fnMiddleware)
			if invokeErr != nil {
				consecutiveErrors++
				slog.WarnContext(ctx, "tool invocation error",
					"tool", call.Name,
					"error", invokeErr,
					"consecutive_errors", consecutiveErrors,
				)
				if consecutiveErrors >= config.MaxConsecutiveErrors {
					return nil, fmt.Errorf("%w: max consecutive errors reached (%d)", ErrToolExecution, consecutiveErrors)
				}
				resultMessages = append(resultMessages, NewToolMessage(call.CallID, toolErrorResult(invokeErr, config)))
				continue
			}

			consecutiveErrors = 0
			resultMessages = append(resultMessages, NewToolMessage(call.CallID, result))
		}

		messages = append(messages, resp.Messages...)
		messages = append(messages, resultMessages...)
	}

	return nil, fmt.Errorf("%w: max iterations reached (%d)", ErrExecution, config.MaxIterations)
}

func toolsByName(tools []Tool) map[string]Tool {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name()] = t
	}
	return m
}

func maxInvocations(t Tool) int {
	if l, ok := t.(interface{ MaxInvocations() int }); ok {
		return l.MaxInvocations()
	}
	return 0
}

func toolErrorResult(err error, config InvocationConfig) string {
	if config.IncludeDetailedErrors {
		return err.Error()
	}
	return "error invoking tool"
}

func needsApproval(calls []functionCall, toolMap map[string]Tool) bool {
	for _, call := range calls {
		if t, ok := toolMap[call.Name]; ok && t.Approval() == ApprovalAlways {
			return true
		}
	}
	return false
}

// replaceCallsWithApprovalRequests swaps every function call for an approval
// request carrying the same call id, name and arguments.
func replaceCallsWithApprovalRequests(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		contents := make(Contents, len(m.Contents))
		for j, c := range m.Contents {
			if fc, ok := c.(*FunctionCallContent); ok {
				contents[j] = &ApprovalRequestContent{
					CallID:    fc.CallID,
					Name:      fc.Name,
					Arguments: fc.Arguments,
				}
				continue
			}
			contents[j] = c
		}
		m.Contents = contents
		out[i] = m
	}
	return out
}

// functionCall is an extracted function call from a response.
type functionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// extractFunctionCalls finds all FunctionCallContent in a response's messages.
func extractFunctionCalls(resp *ChatResponse) []functionCall {
	var calls []functionCall
	for _, msg := range resp.Messages {
		for _, c := range msg.Contents {
			if fc, ok := c.(*FunctionCallContent); ok {
				calls = append(calls, functionCall{
					CallID:    fc.CallID,
					Name:      fc.Name,
					Arguments: fc.Arguments,
				})
			}
		}
	}
	return calls
}

// invokeToolWithMiddleware runs the tool through the function middleware chain.
func invokeToolWithMiddleware(ctx context.Context, tool Tool, args json.RawMessage, mws []FunctionMiddleware) (any, error) {
	handler := func(ctx context.Context, t Tool, a json.RawMessage) (any, error) {
		return t.Invoke(ctx, a)
	}
	final := chainFunctionMiddleware(handler, mws...)
	return final(ctx, tool, args)
}
