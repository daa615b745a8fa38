// Copyright (c) Microsoft. All rights reserved.

package threadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// threadState is the row model of the thread_states table.
type threadState struct {
	AgentID   string `gorm:"primaryKey;size:255"`
	ThreadID  string `gorm:"primaryKey;size:255"`
	State     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (threadState) TableName() string { return "thread_states" }

// SQLStore keeps thread state in a relational table through gorm.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the thread_states table and returns a store over db.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&threadState{}); err != nil {
		return nil, fmt.Errorf("migrate thread_states: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Save implements [Store] with an upsert on (agent_id, thread_id).
func (s *SQLStore) Save(ctx context.Context, agentID string, state []byte) (string, error) {
	threadID, err := prepareSave(agentID, state)
	if err != nil {
		return "", err
	}
	row := threadState{AgentID: agentID, ThreadID: threadID, State: state, UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", fmt.Errorf("upsert thread state: %w", err)
	}
	return threadID, nil
}

// Load implements [Store].
func (s *SQLStore) Load(ctx context.Context, agentID, threadID string) ([]byte, bool, error) {
	if err := validateLoad(agentID, threadID); err != nil {
		return nil, false, err
	}
	var row threadState
	err := s.db.WithContext(ctx).
		Where("agent_id = ? AND thread_id = ?", agentID, threadID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query thread state: %w", err)
	}
	data, ok := checkLoaded(ctx, "sql", agentID, threadID, row.State)
	return data, ok, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
