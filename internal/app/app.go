package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/zlog"
	"go.mongodb.org/mongo-driver/mongo"

	kafka_impl "catalog-ingest/internal/broker/kafka"
	"catalog-ingest/internal/config"
	"catalog-ingest/internal/domain"
	catalog_h "catalog-ingest/internal/http-server/handler/catalog"
	ingest_h "catalog-ingest/internal/http-server/handler/ingest"
	"catalog-ingest/internal/http-server/router"
	"catalog-ingest/internal/pipeline/analyze"
	"catalog-ingest/internal/pipeline/removebg"
	"catalog-ingest/internal/pipeline/watermark"
	minio_repo "catalog-ingest/internal/repository/asset/minio"
	mongo_repo "catalog-ingest/internal/repository/mongodb"
	catalog_uc "catalog-ingest/internal/usecase/catalog"
	ingest_uc "catalog-ingest/internal/usecase/ingest"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	db       *mongo.Database
	producer *kafka_impl.ProducerClient
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
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
	if err := assetRepo.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	catalogRepo := mongo_repo.NewCatalogRepository(db, cfg.Mongo.QueryTimeout)
	slotRepo := mongo_repo.NewSlotRepository(db, cfg.Mongo.QueryTimeout)

	producer := kafka_impl.NewProducerClient(cfg.Kafka)

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

	ingestUsecase := ingest_uc.NewOrchestrator(
		assetRepo, slotRepo, catalogRepo, remover, marker, extractor, producer,
		domain.WatermarkSpec{
			Text:    cfg.Watermark.Text,
			Opacity: cfg.Watermark.Opacity,
			Angle:   cfg.Watermark.Angle,
		},
		retries, logger,
	)
	catalogUsecase := catalog_uc.NewUsecase(catalogRepo, slotRepo, logger)

	h := &router.Handler{
		IngestHandler:  ingest_h.NewIngestHandler(ingestUsecase, logger),
		CatalogHandler: catalog_h.NewCatalogHandler(catalogUsecase, logger),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      router.SetupRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		db:       db,
		producer: producer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if a.db != nil {
			if err := a.db.Client().Disconnect(shutdownCtx); err != nil {
				a.logger.Error().Err(err).Msg("Database disconnect failed")
			}
		}

		if a.producer != nil {
			a.producer.Close()
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
