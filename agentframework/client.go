// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "context"

// ChatClient is the interface for interacting with an LLM backend.
// Provider packages (openai, foundry) implement this interface.
type ChatClient interface {
	// Response sends messages to the model and returns a complete response.
	// When opts.ConversationID is set the backend holds the history and only
	// the new messages are sent.
	Response(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error)
}
