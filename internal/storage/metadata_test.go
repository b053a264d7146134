package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDateRangeFilterDefaults(t *testing.T) {
	end := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Only an end bound supplied: the start defaults to the epoch floor.
	filter := dateRangeFilter(time.Time{}, end)
	ts, ok := filter["timestamp_utc"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, epochFloor, ts["$gte"])
	assert.Equal(t, end, ts["$lte"])
}

func TestDateRangeFilterOpenEnd(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := time.Now().UTC()

	filter := dateRangeFilter(start, time.Time{})
	ts, ok := filter["timestamp_utc"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, start, ts["$gte"])

	endVal, ok := ts["$lte"].(time.Time)
	require.True(t, ok)
	assert.False(t, endVal.Before(before), "open end bound defaults to now")
}

func TestDateRangeFilterExplicitBounds(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	filter := dateRangeFilter(start, end)
	ts := filter["timestamp_utc"].(bson.M)
	assert.Equal(t, start, ts["$gte"])
	assert.Equal(t, end, ts["$lte"])
}

func TestSortOrders(t *testing.T) {
	require.Len(t, ascending, 1)
	assert.Equal(t, "timestamp_utc", ascending[0].Key)
	assert.Equal(t, 1, ascending[0].Value)
	assert.Equal(t, -1, descending[0].Value)
}
