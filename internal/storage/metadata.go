package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kestrel-data/kestrel/internal/model"
)

// epochFloor is the default start bound for open-ended date-range queries.
var epochFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// SaveMetadata inserts one metadata document and returns its hex id.
func (s *Store) SaveMetadata(ctx context.Context, rec model.MetadataRecord) (string, error) {
	rec.ID = primitive.NilObjectID
	res, err := s.collection.InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("storage: save metadata: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("storage: unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

// RecentMetadata returns up to limit documents sorted by timestamp
// descending. A positive lookback restricts results to that window.
func (s *Store) RecentMetadata(ctx context.Context, limit int, lookback time.Duration) ([]model.MetadataRecord, error) {
	filter := bson.M{}
	if lookback > 0 {
		filter["timestamp_utc"] = bson.M{"$gte": time.Now().UTC().Add(-lookback)}
	}
	return s.find(ctx, filter, descending, limit)
}

// MetadataBySession returns documents for one session, oldest first.
func (s *Store) MetadataBySession(ctx context.Context, sessionID string, limit int) ([]model.MetadataRecord, error) {
	return s.find(ctx, bson.M{"session_id": sessionID}, ascending, limit)
}

// MetadataByDateRange returns documents within [start, end], oldest first.
// A zero start defaults to the epoch floor and a zero end defaults to now.
func (s *Store) MetadataByDateRange(ctx context.Context, start, end time.Time, limit int) ([]model.MetadataRecord, error) {
	return s.find(ctx, dateRangeFilter(start, end), ascending, limit)
}

// MetadataByStatus returns documents with the given status, newest first.
func (s *Store) MetadataByStatus(ctx context.Context, status model.RunStatus, limit int) ([]model.MetadataRecord, error) {
	return s.find(ctx, bson.M{"status": status}, descending, limit)
}

// Count returns the number of documents matching the filter; a nil filter
// counts everything.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	n, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("storage: count documents: %w", err)
	}
	return n, nil
}

var (
	ascending  = bson.D{{Key: "timestamp_utc", Value: 1}}
	descending = bson.D{{Key: "timestamp_utc", Value: -1}}
)

// dateRangeFilter builds the timestamp filter for a date-range query,
// applying the default bounds for zero values.
func dateRangeFilter(start, end time.Time) bson.M {
	if start.IsZero() {
		start = epochFloor
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return bson.M{"timestamp_utc": bson.M{"$gte": start, "$lte": end}}
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D, limit int) ([]model.MetadataRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(sort).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: find metadata: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []model.MetadataRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: decode metadata: %w", err)
	}
	return docs, nil
}
