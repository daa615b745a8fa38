// Copyright (c) Microsoft. All rights reserved.

// Package foundry is a REST client for Azure AI Foundry Persistent Agents:
// agents, threads, runs, vector stores and files.
//
// [Client] covers the administrative surface. [AgentChatClient] binds one
// hosted agent to the [agentframework.ChatClient] interface so it can back an
// [agentframework.Agent]. The service keeps the thread history, so sessions
// driven through it run in service-managed mode.
//
//	client, err := foundry.New(endpoint, foundry.WithCredential(cred))
//	agent, err := client.CreateAgent(ctx, foundry.CreateAgentRequest{
//	    Model:        "gpt-4o",
//	    Name:         "GlobalAgent",
//	    Instructions: "You are a helpful assistant.",
//	})
//	chat := client.ChatClient(agent.ID)
package foundry
