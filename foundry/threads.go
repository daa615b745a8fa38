// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// CreateThread starts an empty thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.tp.do(ctx, http.MethodPost, "/threads", nil, struct{}{}, &thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return &thread, nil
}

// CreateMessage appends a user message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) (*ThreadMessage, error) {
	body := map[string]string{"role": "user", "content": content}
	var msg ThreadMessage
	if err := c.tp.do(ctx, http.MethodPost, threadPath(threadID, "messages"), nil, body, &msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns the messages of a thread in creation order. A non-empty
// runID restricts the result to the messages that run produced.
func (c *Client) ListMessages(ctx context.Context, threadID, runID string) ([]ThreadMessage, error) {
	q := url.Values{"order": {"asc"}}
	if runID != "" {
		q.Set("run_id", runID)
	}
	var out []ThreadMessage
	for {
		var page listResponse[ThreadMessage]
		if err := c.tp.do(ctx, http.MethodGet, threadPath(threadID, "messages"), q, nil, &page); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		out = append(out, page.Data...)
		if !page.HasMore || page.LastID == "" {
			return out, nil
		}
		q.Set("after", page.LastID)
	}
}

// CreateRun starts the agent on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	body := map[string]string{"assistant_id": agentID}
	var run Run
	if err := c.tp.do(ctx, http.MethodPost, threadPath(threadID, "runs"), nil, body, &run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.tp.do(ctx, http.MethodGet, threadPath(threadID, "runs", runID), nil, nil, &run); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// LatestRun returns the most recent run of a thread, or nil when the thread
// has none.
func (c *Client) LatestRun(ctx context.Context, threadID string) (*Run, error) {
	q := url.Values{"limit": {"1"}, "order": {"desc"}}
	var page listResponse[Run]
	if err := c.tp.do(ctx, http.MethodGet, threadPath(threadID, "runs"), q, nil, &page); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(page.Data) == 0 {
		return nil, nil
	}
	return &page.Data[0], nil
}

// SubmitToolOutputs hands function results to a run in requires_action.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	body := map[string][]ToolOutput{"tool_outputs": outputs}
	var run Run
	if err := c.tp.do(ctx, http.MethodPost, threadPath(threadID, "runs", runID, "submit_tool_outputs"), nil, body, &run); err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return &run, nil
}

// PollRun waits until the run leaves the queued and in_progress states. It
// returns early with ctx.Err() when the context ends.
func (c *Client) PollRun(ctx context.Context, run *Run) (*Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for run.Status.Pending() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		next, err := c.GetRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return nil, err
		}
		run = next
	}
	slog.DebugContext(ctx, "run settled", "thread_id", run.ThreadID, "run_id", run.ID, "status", run.Status)
	return run, nil
}

func threadPath(threadID string, parts ...string) string {
	p := "/threads/" + url.PathEscape(threadID)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}
