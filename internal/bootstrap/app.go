package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mentorchat/internal/ai"
	"mentorchat/internal/app"
	"mentorchat/internal/cache"
	"mentorchat/internal/config"
	"mentorchat/internal/logging"
	mysqlClient "mentorchat/internal/platform/mysql"
	"mentorchat/internal/platform/objectstore"
	rabbitmqClient "mentorchat/internal/platform/rabbitmq"
	redisClient "mentorchat/internal/platform/redis"
	"mentorchat/internal/repository"
	"mentorchat/internal/worker"
)

// App owns every client and service of the process. Optional dependencies
// that are not configured stay nil and the services degrade accordingly.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	ObjectStore    *objectstore.S3Store
	ReplyPublisher *rabbitmqClient.ReplyPublisher
	MentorWorker   *worker.MentorReplyWorker

	Chat    *app.ChatService
	Uploads *app.UploadService
	Mentor  *app.MentorService
	Health  *app.HealthService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logging.New(cfg.App.Env).With("app", cfg.App.Name),
		StartedAt: time.Now(),
	}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.wire()
	if err := a.startWorkers(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// connect opens the configured clients. A configured database that cannot be
// reached aborts startup; the cache, the broker and the object store only
// disable their features.
func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.MySQLEnabled() {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = db
	} else {
		a.Logger.Warn("mysql not configured: chat history is unavailable")
	}

	if cfg.RedisEnabled() {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Logger.Warn("redis unavailable: history cache disabled", "error", err)
		} else {
			a.Redis = client
		}
	}

	if cfg.RabbitMQEnabled() {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MentorReplyQueue)
		if err != nil {
			a.Logger.Warn("rabbitmq unavailable: mentor replies disabled", "error", err)
		} else {
			a.MQConn = conn
		}
	}

	if cfg.StorageEnabled() {
		store, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicURLBase(),
			UsePathStyle:  cfg.Storage.UsePathStyle,
		})
		if err != nil {
			a.Logger.Warn("object store unavailable: uploads disabled", "error", err)
		} else {
			a.ObjectStore = store
			checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := store.HeadBucket(checkCtx, cfg.Storage.Bucket); err != nil {
				a.Logger.Warn("default bucket check failed", "bucket", cfg.Storage.Bucket, "error", err)
			}
			cancel()
		}
	} else {
		a.Logger.Warn("object store not configured: uploads are unavailable")
	}
	return nil
}

// wire builds the services. Interface-typed locals stay nil for missing
// dependencies so the services see a nil interface, never a typed nil.
func (a *App) wire() {
	cfg := a.Config

	var (
		turns     app.TurnRepository
		prober    app.Prober
		history   app.HistoryCache
		publisher app.ReplyPublisher
		store     app.ObjectStore
		turnRepo  *repository.TurnRepository
	)
	if a.MySQL != nil {
		turnRepo = repository.NewTurnRepository(a.MySQL)
		turns = turnRepo
		prober = turnRepo
	}
	if a.Redis != nil {
		history = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}
	if a.MQConn != nil && cfg.LLMEnabled() {
		a.ReplyPublisher = rabbitmqClient.NewReplyPublisher(a.MQConn, cfg.RabbitMQ.MentorReplyQueue)
		publisher = a.ReplyPublisher
	}
	if a.ObjectStore != nil {
		store = a.ObjectStore
	}

	a.Uploads = app.NewUploadService(store, cfg.Storage.Bucket, cfg.Storage.Buckets(), a.Logger)
	a.Chat = app.NewChatService(turns, a.Uploads, history, publisher, a.Logger)
	a.Health = app.NewHealthService(prober, cfg.App.Env, cfg.App.Version, a.StartedAt, a.Logger)
	a.Mentor = app.NewMentorService(
		turns,
		a.Chat,
		ai.NewOpenAICompatibleClient(),
		ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model},
		cfg.LLM.SystemPrompt,
		cfg.LLM.MaxContextMessage,
		a.Logger,
	)
}

func (a *App) startWorkers(ctx context.Context) error {
	if a.ReplyPublisher == nil || a.MySQL == nil {
		return nil
	}
	a.MentorWorker = worker.NewMentorReplyWorker(
		a.MQConn,
		a.Mentor,
		a.Config.RabbitMQ.MentorReplyQueue,
		a.Config.RabbitMQ.WorkerConcurrency,
		a.Logger,
	)
	if err := a.MentorWorker.Start(ctx); err != nil {
		return fmt.Errorf("start mentor reply worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.MentorWorker != nil {
		a.MentorWorker.Close()
	}
	if a.ReplyPublisher != nil {
		if err := a.ReplyPublisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
