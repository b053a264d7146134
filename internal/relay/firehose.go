package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
)

// Sender delivers one batch of newline-terminated JSON payloads and
// reports how many records the stream rejected.
type Sender interface {
	SendBatch(ctx context.Context, records [][]byte) (failed int, err error)
}

// FirehoseSender sends batches to a Kinesis Firehose delivery stream.
type FirehoseSender struct {
	client     *firehose.Client
	streamName string
}

// NewFirehoseSender resolves AWS credentials from the default chain and
// creates a Firehose client. A missing stream name is a configuration
// error surfaced at construction.
func NewFirehoseSender(ctx context.Context, streamName, region string) (*FirehoseSender, error) {
	if streamName == "" {
		return nil, fmt.Errorf("relay: FIREHOSE_STREAM_NAME is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("relay: load aws config: %w", err)
	}

	return &FirehoseSender{
		client:     firehose.NewFromConfig(awsCfg),
		streamName: streamName,
	}, nil
}

// SendBatch issues one PutRecordBatch call.
func (s *FirehoseSender) SendBatch(ctx context.Context, records [][]byte) (int, error) {
	entries := make([]types.Record, len(records))
	for i, r := range records {
		entries[i] = types.Record{Data: r}
	}

	out, err := s.client.PutRecordBatch(ctx, &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(s.streamName),
		Records:            entries,
	})
	if err != nil {
		return len(records), fmt.Errorf("relay: put record batch: %w", err)
	}
	return int(aws.ToInt32(out.FailedPutCount)), nil
}

// isRetriable reports whether a send error indicates a transient condition
// worth another attempt.
func isRetriable(err error) bool {
	var unavailable *types.ServiceUnavailableException
	return errors.As(err, &unavailable)
}
