// Package storage provides the MongoDB document store for agent metadata.
//
// One logical collection holds flat metadata documents keyed by a
// server-generated id with a timestamp_utc field; queries are simple
// filter+sort+limit reads by recency, session, date range, or status.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store wraps a single MongoDB collection of metadata documents.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// New connects to MongoDB and pings the server. A missing URI is a
// configuration error reported at construction.
func New(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("storage: MONGODB_URI is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

// Ping checks connectivity to the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) {
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn("storage: disconnect", "error", err)
	}
}
