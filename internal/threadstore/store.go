// Copyright (c) Microsoft. All rights reserved.

// Package threadstore persists serialized conversation sessions keyed by
// agent id and thread id.
//
// Stores treat the state as opaque: the bytes passed to Save are the bytes
// Load returns. The only field a store reads is the thread id, taken from the
// top-level conversationId (service-managed threads) or sessionId (locally
// managed threads) of the blob.
package threadstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// SentinelThreadID addresses state that carries no thread id.
const SentinelThreadID = "agent_thread"

var (
	// ErrInvalidKey is returned for agent or thread ids that cannot address a record.
	ErrInvalidKey = fmt.Errorf("%w: invalid thread store key", af.ErrValidation)

	// ErrInvalidState is returned by Save for state that is not valid JSON.
	ErrInvalidState = fmt.Errorf("%w: thread state is not valid JSON", af.ErrValidation)
)

// Store saves and loads thread state.
type Store interface {
	// Save writes state under (agentID, thread id found in state), replacing
	// any previous value, and returns the thread id it used.
	Save(ctx context.Context, agentID string, state []byte) (threadID string, err error)

	// Load returns the state saved under (agentID, threadID). A missing
	// record, or one that no longer holds valid JSON, reports found=false
	// with a nil error.
	Load(ctx context.Context, agentID, threadID string) (state []byte, found bool, err error)
}

// ThreadIDFromState returns the thread id a Save of state would use.
func ThreadIDFromState(state []byte) string {
	var ids struct {
		ConversationID any `json:"conversationId"`
		SessionID      any `json:"sessionId"`
	}
	if err := json.Unmarshal(state, &ids); err != nil {
		return SentinelThreadID
	}
	if id, ok := ids.ConversationID.(string); ok && id != "" {
		return id
	}
	if id, ok := ids.SessionID.(string); ok && id != "" {
		return id
	}
	return SentinelThreadID
}

// ValidateKey rejects ids that are empty or could escape their namespace.
func ValidateKey(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidKey)
	case id == "." || strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q contains a relative path element", ErrInvalidKey, id)
	case strings.ContainsAny(id, "/\\:\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, id)
	}
	return nil
}

// prepareSave validates a Save call and resolves its thread id.
func prepareSave(agentID string, state []byte) (string, error) {
	if err := ValidateKey(agentID); err != nil {
		return "", err
	}
	if !json.Valid(state) {
		return "", ErrInvalidState
	}
	threadID := ThreadIDFromState(state)
	if err := ValidateKey(threadID); err != nil {
		return "", err
	}
	return threadID, nil
}

func validateLoad(agentID, threadID string) error {
	if err := ValidateKey(agentID); err != nil {
		return err
	}
	return ValidateKey(threadID)
}

// checkLoaded applies the soft-failure policy to loaded bytes.
func checkLoaded(ctx context.Context, backend, agentID, threadID string, data []byte) ([]byte, bool) {
	if !json.Valid(data) {
		slog.WarnContext(ctx, "discarding unreadable thread state",
			"backend", backend,
			"agent_id", agentID,
			"thread_id", threadID,
			"error", ErrInvalidState,
		)
		return nil, false
	}
	return data, true
}
