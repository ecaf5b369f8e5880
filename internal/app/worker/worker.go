package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	kafka_impl "catalog-ingest/internal/broker/kafka"
	"catalog-ingest/internal/config"
	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/pipeline/analyze"
	"catalog-ingest/internal/pipeline/removebg"
	"catalog-ingest/internal/pipeline/watermark"
	minio_repo "catalog-ingest/internal/repository/asset/minio"
	mongo_repo "catalog-ingest/internal/repository/mongodb"
	ingest_uc "catalog-ingest/internal/usecase/ingest"
)

// Worker consumes staged gallery-slot tasks and runs them through the
// pipeline. Each task is independent; there is no cross-slot ordering.
type Worker struct {
	cfg          *config.Config
	logger       *zlog.Zerolog
	consumer     *kafka_impl.ConsumerClient
	orchestrator *ingest_uc.Orchestrator
}

func NewWorker(cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	retries := cfg.DefaultRetryStrategy()
	ctx := context.Background()

	db, err := mongo_repo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	assetRepo, err := minio_repo.NewAssetRepository(cfg.Storage, retries)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset repository: %w", err)
	}

	catalogRepo := mongo_repo.NewCatalogRepository(db, cfg.Mongo.QueryTimeout)
	slotRepo := mongo_repo.NewSlotRepository(db, cfg.Mongo.QueryTimeout)

	remover := removebg.NewManager(removebg.Config{
		ModelPath:   cfg.RemoveBG.ModelPath,
		LibraryPath: cfg.RemoveBG.LibraryPath,
		InputSize:   cfg.RemoveBG.InputSize,
		Threads:     cfg.RemoveBG.Threads,
	})

	marker, err := watermark.NewCompositor()
	if err != nil {
		return nil, fmt.Errorf("failed to create watermark compositor: %w", err)
	}

	extractor, err := analyze.NewExtractor(cfg.Vision.URL, cfg.Vision.Model, cfg.Vision.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata extractor: %w", err)
	}

	producer := kafka_impl.NewProducerClient(cfg.Kafka)

	orchestrator := ingest_uc.NewOrchestrator(
		assetRepo, slotRepo, catalogRepo, remover, marker, extractor, producer,
		domain.WatermarkSpec{
			Text:    cfg.Watermark.Text,
			Opacity: cfg.Watermark.Opacity,
			Angle:   cfg.Watermark.Angle,
		},
		retries, logger,
	)

	return &Worker{
		cfg:          cfg,
		logger:       logger,
		consumer:     kafka_impl.NewConsumerClient(cfg.Kafka),
		orchestrator: orchestrator,
	}, nil
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan kafka.Message, w.cfg.Worker.Concurrency)

	go w.consumer.StartConsuming(ctx, messages, w.cfg.DefaultRetryStrategy())

	for i := 0; i < w.cfg.Worker.Concurrency; i++ {
		go w.worker(ctx, i, messages)
	}

	w.logger.Info().Int("concurrency", w.cfg.Worker.Concurrency).Msg("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	w.logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	cancel()

	return w.consumer.Close()
}

func (w *Worker) worker(ctx context.Context, id int, messages <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", id).Msg("Worker stopped")
			return
		case msg := <-messages:
			w.processMessage(ctx, id, msg)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, workerID int, msg kafka.Message) {
	var task domain.IngestTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		w.logger.Error().Err(err).Int("worker_id", workerID).Msg("Failed to unmarshal task")
		// Poison message, commit so it is not redelivered.
		if err := w.consumer.Commit(ctx, msg); err != nil {
			w.logger.Error().Err(err).Msg("Failed to commit poison message")
		}
		return
	}

	w.logger.Info().
		Int("worker_id", workerID).
		Str("task_id", task.ID).
		Str("slot_id", task.SlotID).
		Msg("Processing task")

	if err := w.orchestrator.ProcessTask(ctx, task); err != nil {
		// The failure is already recorded on the slot; the task is done
		// either way.
		w.logger.Error().Err(err).
			Str("task_id", task.ID).
			Str("slot_id", task.SlotID).
			Msg("Task failed")
	}

	if err := w.consumer.Commit(ctx, msg); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to commit message")
		return
	}

	w.logger.Info().
		Int("worker_id", workerID).
		Str("task_id", task.ID).
		Msg("Task completed")
}
