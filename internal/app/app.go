package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsio "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	natsadapter "github.com/marketworks/listing-service/internal/adapter/messaging/nats"
	"github.com/marketworks/listing-service/internal/adapter/repository/mongodb"
	"github.com/marketworks/listing-service/internal/adapter/repository/redisindex"
	"github.com/marketworks/listing-service/internal/adapter/storage/disk"
	"github.com/marketworks/listing-service/internal/adapter/storage/s3"
	"github.com/marketworks/listing-service/internal/config"
	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/listing/usecase"
	"github.com/marketworks/listing-service/internal/mailer"
	"github.com/marketworks/listing-service/internal/platform/logger"
	"github.com/marketworks/listing-service/internal/platform/metrics"
	"github.com/marketworks/listing-service/internal/platform/tracer"
)

const serviceName = "listing-service"

// App is the composition root. The request layer consumes Coordinator and
// Search; everything else here is lifecycle plumbing.
type App struct {
	Coordinator *usecase.MediaCoordinator
	Search      *usecase.SearchSync

	cfg         *config.Config
	log         logger.Logger
	mongoClient *mongo.Client
	redisClient *redis.Client
	natsConn    *natsio.Conn
	reindexSub  *natsio.Subscription
	traceProv   *sdktrace.TracerProvider
	metrics     *metrics.Metrics
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	log := logger.NewZapLogger(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	log.Infof("configuration loaded: env=%s storage=%s", cfg.Env, cfg.Storage.Backend)

	traceProv, err := tracer.Init(ctx, serviceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	m := metrics.New("listing_service")

	log.Info("initializing MongoDB client...")
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	listingRepo := mongodb.NewListingRepository(mongoClient.Database(cfg.MongoDB.Database))

	log.Info("initializing Redis client...")
	redisClient, err := redisindex.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	indexRepo := redisindex.NewIndexRepository(redisClient)

	log.Info("initializing NATS connection...")
	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS connection: %w", err)
	}
	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}

	storage, err := newStorage(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	search := usecase.NewSearchSync(indexRepo, listingRepo, log, m)
	if cfg.Search.AdminEmail != "" && cfg.SMTP.Host != "" {
		search = search.WithReindexReporting(mailer.NewSMTPMailer(cfg.SMTP), cfg.Search.AdminEmail)
	}

	coordinator := usecase.NewMediaCoordinator(
		listingRepo,
		storage,
		usecase.NewImageValidator(),
		search,
		publisher,
		log,
		m,
		cfg.Storage.UploadDir,
	)

	reindexSub, err := natsadapter.SubscribeReindex(natsConn, cfg.Search.ReindexSubject, search, log)
	if err != nil {
		return nil, err
	}

	return &App{
		Coordinator: coordinator,
		Search:      search,
		cfg:         cfg,
		log:         log,
		mongoClient: mongoClient,
		redisClient: redisClient,
		natsConn:    natsConn,
		reindexSub:  reindexSub,
		traceProv:   traceProv,
		metrics:     m,
	}, nil
}

func newStorage(cfg config.StorageConfig, log logger.Logger) (domain.MediaStorage, error) {
	switch cfg.Backend {
	case "s3":
		storage, err := s3.NewStorage(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket,
			cfg.MinIO.UseSSL,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return storage, nil
	case "disk":
		return disk.NewStorage(log), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Run blocks until SIGINT/SIGTERM, then shuts components down in reverse
// dependency order.
func (a *App) Run() {
	go func() {
		if err := metrics.StartServer(a.cfg.Metrics.Port, a.metrics, a.log); err != nil {
			a.log.Errorf("metrics server stopped: %v", err)
		}
	}()

	a.log.Info("listing service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	received := <-quit
	a.log.Infof("received shutdown signal: %v", received)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.reindexSub != nil {
		if err := a.reindexSub.Unsubscribe(); err != nil {
			a.log.Errorf("error unsubscribing reindex handler: %v", err)
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("error disconnecting from MongoDB: %v", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("error closing Redis client: %v", err)
		}
	}
	if a.traceProv != nil {
		if err := a.traceProv.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("listing service shut down")
}
