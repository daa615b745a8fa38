// Copyright (c) Microsoft. All rights reserved.

package response

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/console"
)

func TestFromAgentRun(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = func() time.Time { return time.Now().UTC() } })

	created := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	run := &af.AgentResponse{
		AgentID: "asst_1",
		Messages: []af.Message{
			{
				Role:       af.RoleAssistant,
				AuthorName: "asst_1",
				MessageID:  "msg_1",
				CreatedAt:  created,
				Contents: af.Contents{
					&af.TextContent{Text: "Oslo is"},
					&af.HostedFileContent{FileID: "file_1"},
					&af.TextContent{Text: "the capital."},
				},
			},
			{Role: af.RoleTool, Contents: af.Contents{&af.FunctionResultContent{CallID: "c1", Result: "done"}}},
			{Role: af.Role("developer"), Contents: af.Contents{&af.TextContent{Text: " "}}},
		},
		Usage: af.UsageDetails{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}

	got := FromAgentRun(run, "thread_1")
	assert.Equal(t, "asst_1", got.AgentID)
	assert.Equal(t, "thread_1", got.ThreadID)
	assert.Equal(t, fixed, got.CreatedAt)
	require.Len(t, got.Messages, 3)

	assert.Equal(t, Message{
		AuthorName: "asst_1",
		CreatedAt:  created,
		Role:       RoleAssistant,
		MessageID:  "msg_1",
		Content:    "Oslo is the capital.",
	}, got.Messages[0])
	assert.Equal(t, RoleTool, got.Messages[1].Role)
	assert.Equal(t, "done", got.Messages[1].Content)
	assert.Equal(t, RoleUser, got.Messages[2].Role, "unknown roles map to user")
	assert.Empty(t, got.Messages[2].Content)
	assert.Equal(t, fixed, got.Messages[2].CreatedAt)

	require.NotNil(t, got.Usage)
	assert.Equal(t, TokenUsage{InputTokenCount: 10, OutputTokenCount: 5, TotalTokenCount: 15}, *got.Usage)
	assert.Equal(t, "Oslo is the capital.\ndone", got.Text())
}

func TestFromAgentRun_JSONShape(t *testing.T) {
	got := FromAgentRun(&af.AgentResponse{AgentID: "a"}, "t")
	data, err := json.Marshal(got)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "a", m["agentId"])
	assert.Equal(t, "t", m["threadId"])
	assert.Contains(t, m, "createdAt")
	assert.Equal(t, []any{}, m["messages"])
	assert.NotContains(t, m, "usage", "usage is omitted when nothing was counted")
}

func TestLogTokenUsage(t *testing.T) {
	t.Setenv("COLUMNS", "4")
	var buf bytes.Buffer
	LogTokenUsage(console.New(&buf), &AgentResponse{Usage: &TokenUsage{InputTokenCount: 12, OutputTokenCount: 3}})

	want := strings.Join([]string{"", "---", "", "Token Usage", "- Input Tokens: 12", "- Output Tokens: 3", "", "---", "", ""}, "\n")
	assert.Equal(t, want, buf.String())
}
