// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/foundry-agents/go/internal/console"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/response"
)

type fakeAsker struct {
	requests []conversation.AskRequest
	fail     map[string]error
}

func (f *fakeAsker) Ask(_ context.Context, req conversation.AskRequest) (*response.AgentResponse, error) {
	f.requests = append(f.requests, req)
	if err := f.fail[req.Message]; err != nil {
		return nil, err
	}
	return &response.AgentResponse{
		AgentID:  "asst_001",
		ThreadID: "thread_001",
		Messages: []response.Message{{Role: response.RoleAssistant, Content: "answer to " + req.Message}},
	}, nil
}

func TestChat_ReusesThreadAndExits(t *testing.T) {
	var out bytes.Buffer
	svc := &fakeAsker{}
	in := strings.NewReader("What is the capital of France?\n\n   \nAnd of Spain?\nX\nnever sent\n")

	require.NoError(t, chat(context.Background(), in, console.New(&out), svc, "GeographyAgent"))

	require.Len(t, svc.requests, 2)
	assert.Equal(t, conversation.AskRequest{Message: "What is the capital of France?", AgentType: "GeographyAgent"}, svc.requests[0])
	assert.Equal(t, conversation.AskRequest{
		Message:   "And of Spain?",
		ThreadID:  "thread_001",
		AgentID:   "asst_001",
		AgentType: "GeographyAgent",
	}, svc.requests[1])

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Ask me a question (or press 'x' to exit):\n"))
	assert.Contains(t, text, "answer to What is the capital of France?\n")
	assert.Contains(t, text, "answer to And of Spain?\n")
	assert.True(t, strings.HasSuffix(text, "> Goodbye!\n"))
}

func TestChat_ErrorsDoNotEndTheSession(t *testing.T) {
	var out bytes.Buffer
	svc := &fakeAsker{fail: map[string]error{"boom": errors.New("service unavailable")}}
	in := strings.NewReader("boom\nhello\n")

	require.NoError(t, chat(context.Background(), in, console.New(&out), svc, "GeographyAgent"))

	assert.Len(t, svc.requests, 2)
	assert.Empty(t, svc.requests[1].ThreadID)
	assert.Contains(t, out.String(), "Error: service unavailable\n")
	assert.Contains(t, out.String(), "answer to hello\n")
}

func TestChat_StopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeAsker{fail: map[string]error{"hello": context.Canceled}}
	cancel()

	err := chat(ctx, strings.NewReader("hello\nagain\n"), console.Discard(), svc, "GeographyAgent")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, svc.requests, 1)
}
