package relay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/kestrel-data/kestrel/internal/model"
)

// MetadataSource provides historical metadata for backfills.
type MetadataSource interface {
	RecentMetadata(ctx context.Context, limit int, lookback time.Duration) ([]model.MetadataRecord, error)
	MetadataByDateRange(ctx context.Context, start, end time.Time, limit int) ([]model.MetadataRecord, error)
}

// Relay forwards shaped records to the delivery stream in fixed-size
// batches with bounded retry. It never blocks indefinitely: a batch that
// keeps failing after the retry budget is dropped and reported as a lower
// sent count.
type Relay struct {
	sender     Sender
	source     MetadataSource
	batchSize  int
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New creates a relay. source may be nil when backfills are not used.
func New(sender Sender, source MetadataSource, batchSize, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 25
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Relay{
		sender:     sender,
		source:     source,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// StreamMetadata shapes one run into its three-way fan-out and sends it.
// Returns true only when every record was accepted.
func (r *Relay) StreamMetadata(ctx context.Context, rec model.MetadataRecord) (bool, error) {
	set := Shape(rec)
	payloads, err := set.Payloads()
	if err != nil {
		return false, err
	}
	sent, err := r.Send(ctx, payloads)
	if err != nil {
		return false, err
	}
	return sent == len(payloads), nil
}

// StreamRecent backfills the most recent limit documents from the store.
// Returns the number of records accepted by the stream.
func (r *Relay) StreamRecent(ctx context.Context, limit int) (int, error) {
	if r.source == nil {
		return 0, fmt.Errorf("relay: no metadata source configured for backfill")
	}
	docs, err := r.source.RecentMetadata(ctx, limit, 0)
	if err != nil {
		return 0, err
	}
	return r.streamDocs(ctx, docs)
}

// StreamSince backfills documents recorded after the given time.
func (r *Relay) StreamSince(ctx context.Context, since time.Time) (int, error) {
	if r.source == nil {
		return 0, fmt.Errorf("relay: no metadata source configured for backfill")
	}
	docs, err := r.source.MetadataByDateRange(ctx, since, time.Now().UTC(), 1000)
	if err != nil {
		return 0, err
	}
	return r.streamDocs(ctx, docs)
}

func (r *Relay) streamDocs(ctx context.Context, docs []model.MetadataRecord) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	var payloads [][]byte
	for _, d := range docs {
		p, err := Shape(d).Payloads()
		if err != nil {
			return 0, err
		}
		payloads = append(payloads, p...)
	}
	return r.Send(ctx, payloads)
}

// Send delivers records in batches of at most batchSize. Transient batch
// failures are retried with jittered exponential backoff up to maxRetries;
// a batch that still fails is skipped (partial success). Permanent errors
// abort and return the count sent so far.
func (r *Relay) Send(ctx context.Context, records [][]byte) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var sent int
	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))
		batch := records[start:end]

		ok, err := r.sendBatch(ctx, batch)
		if err != nil {
			return sent, err
		}
		if ok {
			sent += len(batch)
		} else {
			r.logger.Warn("relay: batch dropped after retries", "records", len(batch))
		}
	}
	return sent, nil
}

// sendBatch attempts one batch with retries. Returns false when the batch
// was given up on (transient failures exhausted the retry budget).
func (r *Relay) sendBatch(ctx context.Context, batch [][]byte) (bool, error) {
	delay := r.baseDelay
	for attempt := range r.maxRetries + 1 {
		failed, err := r.sender.SendBatch(ctx, batch)
		if err == nil && failed == 0 {
			return true, nil
		}
		if err != nil && !isRetriable(err) {
			return false, err
		}
		if attempt == r.maxRetries {
			break
		}

		r.logger.Debug("relay: retrying batch", "attempt", attempt+1, "failed", failed, "error", err)
		jitter := time.Duration(rand.Int64N(int64(delay))) //nolint:gosec // jitter doesn't need crypto-strength randomness
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return false, nil
}
