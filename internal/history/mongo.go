// Copyright (c) Microsoft. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// DefaultMongoCollection holds chat history documents.
const DefaultMongoCollection = "chat_history"

type mongoItem struct {
	ThreadKey string    `bson:"threadKey"`
	Seq       int64     `bson:"seq"`
	Text      string    `bson:"text"`
	Message   []byte    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoBackend keeps one document per message, ordered by seq within a
// thread key.
type MongoBackend struct {
	coll *mongo.Collection
}

// NewMongoBackend returns a backend over coll.
func NewMongoBackend(coll *mongo.Collection) *MongoBackend {
	return &MongoBackend{coll: coll}
}

func (b *MongoBackend) Append(ctx context.Context, key string, msgs []af.Message) error {
	now := time.Now().UTC()
	docs := make([]mongoItem, 0, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		docs = append(docs, mongoItem{
			ThreadKey: key,
			Seq:       now.UnixNano() + int64(i),
			Text:      m.Text(),
			Message:   data,
			CreatedAt: now,
		})
	}
	if _, err := b.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

func (b *MongoBackend) Recent(ctx context.Context, key string, n int) ([]af.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if n > 0 {
		opts.SetLimit(int64(n))
	}
	cur, err := b.coll.Find(ctx, bson.D{{Key: "threadKey", Value: key}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var items []mongoItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	slices.Reverse(items)

	msgs := make([]af.Message, 0, len(items))
	for _, it := range items {
		var m af.Message
		if err := json.Unmarshal(it.Message, &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
