package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmersmarket/internal/model"
)

// actionLogDocument is the stored shape of an entry.
type actionLogDocument struct {
	UserID     uint      `bson:"user_id"`
	Action     string    `bson:"action"`
	Details    string    `bson:"details"`
	ActionDate time.Time `bson:"action_date"`
}

// MongoSink writes entries to a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ Store = (*MongoSink)(nil)

// NewMongoSink connects to uri and writes into database.collection.
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// NewMongoSinkFromCollection wraps an existing collection.
func NewMongoSinkFromCollection(collection *mongo.Collection) *MongoSink {
	return &MongoSink{collection: collection}
}

// Write implements Sink.
func (s *MongoSink) Write(ctx context.Context, entries []model.ActionLog) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, actionLogDocument{
			UserID:     e.UserID,
			Action:     e.Action,
			Details:    e.Details,
			ActionDate: e.ActionDate,
		})
	}
	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// ListByUser implements Reader.
func (s *MongoSink) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActionLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "action_date", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []actionLogDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	logs := make([]model.ActionLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, model.ActionLog{
			UserID:     d.UserID,
			Action:     d.Action,
			Details:    d.Details,
			ActionDate: d.ActionDate,
		})
	}
	return logs, nil
}

// Close disconnects the client opened by NewMongoSink.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
