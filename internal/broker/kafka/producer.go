package kafka

import (
	"context"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"catalog-ingest/internal/config"
)

type ProducerClient struct {
	producer *wbkafka.Producer
}

func NewProducerClient(cfg config.KafkaConfig) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Brokers, cfg.TasksTopic),
	}
}

func (p *ProducerClient) SendTask(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, strategy, key, value)
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
