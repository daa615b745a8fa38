// Copyright (c) Microsoft. All rights reserved.

package threadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection holds thread state documents.
const DefaultMongoCollection = "thread_states"

type mongoThread struct {
	ID        string    `bson:"_id"`
	AgentID   string    `bson:"agentId"`
	ThreadID  string    `bson:"threadId"`
	State     []byte    `bson:"state"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps one document per thread, with _id "{agentId}/{threadId}".
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore returns a store over coll.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func mongoID(agentID, threadID string) string {
	return agentID + "/" + threadID
}

// Save implements [Store] with an upsert on _id.
func (s *MongoStore) Save(ctx context.Context, agentID string, state []byte) (string, error) {
	threadID, err := prepareSave(agentID, state)
	if err != nil {
		return "", err
	}
	doc := mongoThread{
		ID:        mongoID(agentID, threadID),
		AgentID:   agentID,
		ThreadID:  threadID,
		State:     state,
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("mongo upsert: %w", err)
	}
	return threadID, nil
}

// Load implements [Store].
func (s *MongoStore) Load(ctx context.Context, agentID, threadID string) ([]byte, bool, error) {
	if err := validateLoad(agentID, threadID); err != nil {
		return nil, false, err
	}
	var doc mongoThread
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: mongoID(agentID, threadID)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo find: %w", err)
	}
	data, ok := checkLoaded(ctx, "mongo", agentID, threadID, doc.State)
	return data, ok, nil
}
