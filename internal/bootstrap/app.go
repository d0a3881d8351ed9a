package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/ai"
	"docuchat/internal/config"
	"docuchat/internal/history"
	"docuchat/internal/model"
	mysqlClient "docuchat/internal/platform/mysql"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	redisClient "docuchat/internal/platform/redis"
	"docuchat/internal/repository"
	"docuchat/internal/storage"
	"docuchat/internal/vectorindex"
	"docuchat/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	DiscardWorker *worker.DiscardPersistWorker

	AIClient    *ai.OpenAICompatibleClient
	VectorIndex *vectorindex.Index
	DocStore    *storage.DocumentStore
	Transcripts *history.Store

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Document{},
		&model.Interaction{},
		&model.UsageLink{},
		&model.Feedback{},
		&model.AttributionDiscard{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewBoundEmbedder(aiClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	index, err := vectorindex.New(cfg.RAG.VectorDBPath, cfg.RAG.CollectionName, embedder)
	if err != nil {
		return nil, err
	}

	docStore, err := storage.NewDocumentStore(cfg.RAG.UploadDir)
	if err != nil {
		return nil, err
	}

	discardRepo := repository.NewDiscardRepository(mysqlDB)
	discardWorker := worker.NewDiscardPersistWorker(mqConn, discardRepo, cfg.RabbitMQ.DiscardQueue)
	if err := discardWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start discard worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		DiscardWorker: discardWorker,
		AIClient:      aiClient,
		VectorIndex:   index,
		DocStore:      docStore,
		Transcripts:   history.NewStore(redisCli),
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DiscardWorker != nil {
		a.DiscardWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
