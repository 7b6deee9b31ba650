package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	qdrantgo "github.com/qdrant/go-client/qdrant"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"legiseye/internal/ai"
	"legiseye/internal/config"
	"legiseye/internal/logging"
	"legiseye/internal/mail"
	"legiseye/internal/model"
	"legiseye/internal/platform/database"
	qdrantClient "legiseye/internal/platform/qdrant"
	rabbitmqClient "legiseye/internal/platform/rabbitmq"
	redisClient "legiseye/internal/platform/redis"
	"legiseye/internal/translate"
	"legiseye/internal/vectorindex"
	"legiseye/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Qdrant *qdrantgo.Client
	// Index is nil when the vector backend could not be opened; chat then
	// falls back to the chunks stored in the database.
	Index    vectorindex.Index
	Provider ai.Provider
	Services *Services

	consumers []*worker.Consumer
	StartedAt time.Time
}

// Load reads the configuration and builds the logger.
func Load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// Migrate opens the database and applies the schema.
func Migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.Migrate(db, model.All()...); err != nil {
		return err
	}
	logger.Info("database migrated", zap.String("driver", cfg.Database.Driver))
	return nil
}

// New connects every backing service, wires the application services and
// starts the queue consumers.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logging.OrNop(logger), StartedAt: time.Now()}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Services = NewServices(Backends{
		Config:        cfg,
		Logger:        a.Logger,
		DB:            a.DB,
		Redis:         a.Redis,
		Index:         a.Index,
		Provider:      a.Provider,
		Translator:    translate.NewClient(cfg.Translation.BaseURL, cfg.Translation.APIKey),
		MailSender:    mail.NewSender(cfg.Mail, a.Logger.Named("mail")),
		MessageQueue:  rabbitmqClient.NewPublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue),
		AnalysisQueue: rabbitmqClient.NewPublisher(a.MQConn, cfg.RabbitMQ.AnalysisQueue),
		EmailQueue:    rabbitmqClient.NewPublisher(a.MQConn, cfg.RabbitMQ.EmailQueue),
	})

	if err := a.startConsumers(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db, model.All()...); err != nil {
		return err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}

	a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL,
		cfg.RabbitMQ.MessagePersistQueue,
		cfg.RabbitMQ.AnalysisQueue,
		cfg.RabbitMQ.EmailQueue,
	)
	if err != nil {
		return err
	}

	a.Provider, err = ai.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm provider failed: %w", err)
	}

	index, err := a.openIndex(ctx)
	if err != nil {
		a.Logger.Warn("vector index unavailable, using stored chunks only",
			zap.String("backend", cfg.Vector.Backend), zap.Error(err))
	} else {
		a.Index = index
	}

	a.Logger.Info("backing services connected",
		zap.String("database", cfg.Database.Driver),
		zap.String("llm", a.Provider.Name()),
		zap.Bool("vector_index", a.Index != nil),
	)
	return nil
}

func (a *App) openIndex(ctx context.Context) (vectorindex.Index, error) {
	cfg := a.Config.Vector
	switch cfg.Backend {
	case "qdrant":
		client, err := qdrantClient.New(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey, cfg.QdrantTLS)
		if err != nil {
			return nil, err
		}
		index := vectorindex.NewQdrantIndex(client, cfg.Collection, cfg.Dimensions)
		if err := index.EnsureCollection(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		a.Qdrant = client
		return index, nil
	case "chromem":
		return vectorindex.NewChromemIndex(cfg.ChromemPath, cfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.Backend)
	}
}

func (a *App) startConsumers(ctx context.Context) error {
	cfg := a.Config.RabbitMQ
	s := a.Services
	consumers := []*worker.Consumer{
		worker.NewConsumer(a.MQConn, cfg.MessagePersistQueue, worker.PersistChatMessage(s.repos.messages), a.Logger),
		worker.NewConsumer(a.MQConn, cfg.AnalysisQueue, worker.AnalyzeDocuments(s.Analysis), a.Logger),
		worker.NewConsumer(a.MQConn, cfg.EmailQueue, worker.SendEmails(s.mailSender), a.Logger),
	}
	for _, c := range consumers {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start worker failed: %w", err)
		}
		a.consumers = append(a.consumers, c)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.consumers {
		c.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := closeDB(a.DB); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
