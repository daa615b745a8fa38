// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// Client implements [agentframework.ChatClient] using the OpenAI Chat
// Completions API. Use [New] to create one.
type Client struct {
	tp    transport
	model string
}

// Verify interface compliance at compile time.
var _ af.ChatClient = (*Client)(nil)

// New creates an OpenAI [Client] with the given API key and options.
//
//	client := openai.New(os.Getenv("AZURE_OPENAI_API_KEY"),
//	    openai.WithAzureDeployment(endpoint, "gpt-4o", "2024-10-21"),
//	)
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{
		tp:    newHTTPTransport(apiKey, cfg),
		model: cfg.model,
	}
}

// Model returns the default model or deployment name.
func (c *Client) Model() string { return c.model }

// Response sends a chat completion request and returns the complete response.
func (c *Client) Response(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	req := buildRequest(messages, opts, c.model)

	resp, err := c.tp.do(ctx, http.MethodPost, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", af.ErrService, err)
	}

	raw, err := unmarshalChatResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", af.ErrInvalidResponse, err)
	}

	result := parseChatResponse(raw)
	result.Raw = raw
	return result, nil
}
