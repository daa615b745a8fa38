// Copyright (c) Microsoft. All rights reserved.

package threadstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per thread at
// {root}/AgentsThreads/{agentId}/Threads/{threadId}.json.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at dir. Directories are created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: filepath.Join(dir, "AgentsThreads")}
}

// Path returns the file that holds (agentID, threadID).
func (s *FileStore) Path(agentID, threadID string) string {
	return filepath.Join(s.root, agentID, "Threads", threadID+".json")
}

// Save writes the state atomically through a temp file in the same directory.
func (s *FileStore) Save(ctx context.Context, agentID string, state []byte) (string, error) {
	threadID, err := prepareSave(agentID, state)
	if err != nil {
		return "", err
	}

	path := s.Path(agentID, threadID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create thread directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, threadID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(state); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write thread state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close thread state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace thread state: %w", err)
	}

	slog.DebugContext(ctx, "thread state saved", "agent_id", agentID, "thread_id", threadID, "path", path)
	return threadID, nil
}

// Load reads the state file.
func (s *FileStore) Load(ctx context.Context, agentID, threadID string) ([]byte, bool, error) {
	if err := validateLoad(agentID, threadID); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.Path(agentID, threadID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read thread state: %w", err)
	}
	data, ok := checkLoaded(ctx, "file", agentID, threadID, data)
	return data, ok, nil
}
