package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/ecofinds/internal/cfg"
	v1Grpc "github.com/DRSN-tech/ecofinds/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/ecofinds/internal/delivery/v1/http"
	"github.com/DRSN-tech/ecofinds/internal/infrastructure/insights"
	"github.com/DRSN-tech/ecofinds/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/ecofinds/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/ecofinds/internal/repository/minio"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/internal/repository/redis"
	redisConv "github.com/DRSN-tech/ecofinds/internal/repository/redis/converter"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/auth"
	"github.com/DRSN-tech/ecofinds/pkg/clients"
	"github.com/DRSN-tech/ecofinds/pkg/closer"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/DRSN-tech/ecofinds/pkg/postgres"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/DRSN-tech/ecofinds/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

// Version подставляется при сборке через -ldflags "-X ...app.Version=...".
var Version = "dev"

const (
	initTimeout       = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
	cleanupTimeout    = 5 * time.Second
	healthPoll        = 500 * time.Millisecond
	kafkaTopicTimeout = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv     *v1Http.Server
	grpcSrv     *v1Grpc.GRPCServer
	imagesInfra *minioInfra.MinioInfrastructure
	outbox      *kafka.OutboxWorker
	search      *similarity.Service
	loader      *artifactLoader

	bgCtx         context.Context
	bgCancel      context.CancelFunc
	cleanupCancel context.CancelFunc
}

// NewApp поднимает все зависимости. При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}
	a.bgCtx, a.bgCancel = context.WithCancel(context.Background())

	defer func() {
		if err != nil {
			a.bgCancel()
			if a.cleanupCancel != nil {
				a.cleanupCancel()
			}
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if cerr := a.closer.Close(ctx); cerr != nil {
				log.Warnf("close after failed init: %v", cerr)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing, Version)
	if err != nil {
		log.Errorf(err, "failed to initialize tracing")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("tracing", tp.Shutdown)

	db, err := initPGDB(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	a.closer.AddSimple("postgres", db.Close)

	userRepo := pgdb.NewUserRepo(db.Pool, pgdbConv.UserConv{})
	categoryRepo := pgdb.NewCategoryRepo(db.Pool, pgdbConv.CategoryConv{})
	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConv{})
	cartRepo := pgdb.NewCartRepo(db.Pool, pgdbConv.ProductConv{})
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConv{})
	keywordRepo := pgdb.NewSearchKeywordRepo(db.Pool)
	interactionRepo := pgdb.NewInteractionRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConv{})
	buildRepo := pgdb.NewIndexBuildRepo(db.Pool, pgdbConv.IndexBuildConv{})
	txManager := tr.NewManager(db.Pool)

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := clients.EnsureBuckets(ctx, minioClient, cfg.Minio.BucketName, cfg.Minio.ArtifactBucket); err != nil {
		log.Errorf(err, "failed to initialize MinIO buckets")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)

	redisClient := clients.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(ctx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("redis", redisClient.Close)
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConv{}, cfg.Redis, log)

	encoder, closeEncoder, err := NewEncoder(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize image encoder")
		return nil, err
	}
	a.closer.Add("image encoder", func(context.Context) error { return closeEncoder() })

	a.search = similarity.NewService(similarity.NewEmbedder(encoder), log)
	a.loader = &artifactLoader{
		cfg:    cfg.Similarity,
		builds: buildRepo,
		target: a.search,
		logger: log,
	}
	switch cfg.Similarity.Source {
	case config.SourceFile:
		a.loader.store = similarity.NewFileStore(cfg.Similarity.ArtifactDir)
	case config.SourceMinio:
		a.loader.store = s3Repo.NewArtifactRepo(minioClient, cfg.Minio)
	}

	var cleanupCtx context.Context
	cleanupCtx, a.cleanupCancel = context.WithCancel(context.Background())
	a.imagesInfra = minioInfra.NewMinioInfrastructure(imageRepo, cfg.Minio, log, cleanupCtx)

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.BcryptCost)

	productUC := usecase.NewProductUC(
		productRepo,
		categoryRepo,
		keywordRepo,
		outboxRepo,
		cacheRepo,
		a.imagesInfra,
		txManager,
		log,
	)
	searchUC := usecase.NewSearchUC(a.search, productUC, cfg.Similarity.DefaultTopK, cfg.Similarity.MaxTopK, log)

	uc := v1Http.Usecases{
		Auth:     usecase.NewAuthUC(userRepo, tokens, log),
		User:     usecase.NewUserUC(userRepo, tokens),
		Category: usecase.NewCategoryUC(categoryRepo),
		Product:  productUC,
		Cart:     usecase.NewCartUC(cartRepo, productRepo),
		Order:    usecase.NewOrderUC(orderRepo, cartRepo, outboxRepo, txManager, log),
		Search:   searchUC,
		Assistant: usecase.NewAssistantUC(
			insights.NewConditionGrader(),
			insights.NewPriceSuggester(),
			insights.NewEcoCatalog(),
			insights.NewRecommender(),
			interactionRepo,
		),
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(log, cfg.Kafka)
		if err != nil {
			log.Errorf(err, "failed to initialize kafka producer")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

		if err := producer.EnsureTopic(kafkaTopicTimeout); err != nil {
			log.Warnf("failed to ensure kafka topic %s: %v", cfg.Kafka.Topic, err)
		}

		a.outbox = kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn, cfg.Kafka.OutboxBatchSize, cfg.Kafka.OutboxPoll)
	} else {
		log.Warnf("kafka is disabled, outbox events stay pending")
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(uc, v1Http.SearchLimit{
		RPS:   cfg.Similarity.SearchRPS,
		Burst: cfg.Similarity.SearchBurst,
	})
	a.httpSrv = v1Http.NewServer(r, cfg.Http)

	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)
	a.grpcSrv.RegisterServices(productUC, searchUC)

	return a, nil
}

// Run запускает серверы и фоновые задачи и блокируется до сигнала или фатальной ошибки.
func (a *App) Run() error {
	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			a.logger.Errorf(err, "gRPC server failed")
			grpcErrCh <- err
		}
	}()

	httpErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			a.logger.Errorf(err, "HTTP server failed")
			httpErrCh <- err
		}
	}()

	if a.outbox != nil {
		a.outbox.Start(a.bgCtx)
	}

	go func() {
		if err := a.loader.load(a.bgCtx); err != nil {
			a.logger.Errorf(err, "failed to load similarity index, similar-image search is unavailable")
		}
	}()
	go a.grpcSrv.WatchSimilarity(a.bgCtx, a.search.Loaded, healthPoll)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-httpErrCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.shutdown()
	return appErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Stop(ctx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.grpcSrv.Stop(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warnf("gRPC server shutdown timeout")
		} else {
			a.logger.Errorf(err, "gRPC server shutdown error")
		}
	}

	a.bgCancel()
	if a.outbox != nil {
		a.outbox.Stop()
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cleanupCancel()
	if err := a.imagesInfra.WaitForCleanup(cleanupCtx); err != nil {
		a.logger.Warnf("MinIO cleanup did not finish before shutdown, some objects may remain: %v", err)
	} else {
		a.logger.Infof("MinIO cleanup completed")
	}
	a.cleanupCancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "failed to close resources")
	}

	a.logger.Infof("Application shutdown complete")
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
