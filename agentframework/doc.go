// Copyright (c) Microsoft. All rights reserved.

// Package agentframework provides the core types and abstractions for building
// AI agents in Go. It includes a composable Agent with tool calling, human
// approval of sensitive tool calls, middleware pipelines, and session
// management.
//
// # Quick Start
//
// Create a ChatClient (from the openai or foundry package) and build an Agent:
//
//	client := openai.New(apiKey, openai.WithAzureDeployment(endpoint, "gpt-4o", apiVersion))
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("GlobalAgent"),
//	    agentframework.WithInstructions("You are helpful."),
//	    agentframework.WithTools(tools.Customer()...),
//	)
//
//	resp, err := agent.Run(ctx, []agentframework.Message{
//	    agentframework.NewUserMessage("Hello!"),
//	})
//
// # Architecture
//
//   - [Agent]: composes a client with tools, middleware, and sessions.
//   - [ChatClient]: interface for LLM backends (implemented by provider packages).
//   - [Tool]: callable functions exposed to the model via function calling.
//   - [Content]: sealed interface for the parts of a message.
//   - [Session]: multi-turn conversation state, either service-managed or local.
//   - Middleware: three levels (Agent, Chat, Function) for cross-cutting concerns.
//
// # Approvals
//
// Tools created with [WithApprovalRequired] are never invoked directly. When
// the model calls one, the run returns [ApprovalRequestContent] items instead.
// Answer them in the next run:
//
//	var decisions []*agentframework.ApprovalResponseContent
//	for _, req := range resp.ApprovalRequests() {
//	    decisions = append(decisions, req.CreateResponse(true, ""))
//	}
//	resp, err = agent.Run(ctx, []agentframework.Message{
//	    agentframework.NewApprovalResponseMessage(decisions...),
//	}, agentframework.WithSession(session))
//
// # Sessions
//
// Sessions serialize to JSON so a conversation can resume in another process:
//
//	state, _ := session.MarshalState()
//	restored, _ := agent.RestoreSession(state)
package agentframework
