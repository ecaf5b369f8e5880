package broker

import (
	"context"

	kafka "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

// Producer publishes ingest tasks for the worker pool.
type Producer interface {
	SendTask(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// Consumer feeds the worker pool with ingest tasks.
type Consumer interface {
	StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}
