package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Minio      *MinIOCfg
	Http       *HTTPConfig
	Grpc       *GRPCConfig
	Db         *PGDBCfg
	Qdrant     *QdrantCfg
	Redis      *RedisCfg
	Ml         *MLServiceCfg
	Kafka      *KafkaCfg
	Auth       *AuthCfg
	Similarity *SimilarityCfg
	Tracing    *TracingCfg
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int           // сколько событий outbox забирать за раз
	OutboxPoll        time.Duration // страховочный опрос outbox на случай потерянного NOTIFY
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет с изображениями товаров
	ArtifactBucket    string // Бакет с артефактами индекса похожих изображений
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
	UploadImagesLimit int // Лимит на кол-во одновременных загрузок в S3
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MigrationsURL string
}

type QdrantCfg struct {
	Port           int
	Host           string
	ApiKey         string
	CollectionName string // имя коллекции-зеркала индекса в Qdrant
	UseTLS         bool
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type MLServiceCfg struct {
	Addr          string
	MaxConcurrent int
	MaxRetries    int
	Timeout       time.Duration
}

type AuthCfg struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

// Источники артефактов индекса
const (
	SourceFile  = "file"
	SourceMinio = "minio"
	SourceNone  = "none"
)

// Энкодеры изображений
const (
	EncoderMLService = "ml-service"
	EncoderThumbnail = "thumbnail"
)

type SimilarityCfg struct {
	Source        string // file | minio | none
	ArtifactDir   string // для Source=file: каталог с product_image.index и product_ids.json
	BuildID       string // для Source=minio; пусто: последняя сборка из index_builds
	Encoder       string // ml-service | thumbnail
	VectorSize    int
	ThumbnailSide int
	DefaultTopK   int
	MaxTopK       int
	SearchRPS     float64
	SearchBurst   int
}

type TracingCfg struct {
	OTLPEndpoint string
	ServiceName  string
	Environment  string
	SampleRate   float64
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	auth, err := loadAuthCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	similarity, err := LoadSimilarityCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	tracing, err := loadTracingCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:      minio,
		Http:       http,
		Grpc:       loadGRPCConfig(),
		Db:         db,
		Qdrant:     qdrant,
		Redis:      redis,
		Ml:         ml,
		Kafka:      kafka,
		Auth:       auth,
		Similarity: similarity,
		Tracing:    tracing,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "marketplace-events"
		defaultOutboxBatchSize   = 10
		defaultOutboxPoll        = 30 * time.Second
	)

	enabled, err := strconv.ParseBool(getEnvOrDefault("KAFKA_ENABLED", "true"))
	if err != nil {
		return nil, e.Wrap("KAFKA_ENABLED", e.ErrIncorrectEnvVariable)
	}
	if !enabled {
		return &KafkaCfg{Enabled: false}, nil
	}

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}

	brokers := make([]string, 0)
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultOutboxBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", defaultOutboxPoll)
	if err != nil {
		return nil, e.Wrap("OUTBOX_POLL_INTERVAL", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		OutboxBatchSize:   batchSize,
		OutboxPoll:        poll,
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func LoadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	return loadMinIOCfg(log)
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL         = false
		defaultEndpoint       = "minio:9000"
		defaultBucket         = "product-images"
		defaultArtifactBucket = "similarity-index"
		defaultUploadLimit    = 10
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	uploadLimit, err := parseIntEnv("MINIO_UPLOAD_LIMIT", defaultUploadLimit)
	if err != nil {
		log.Errorf(err, "invalid MINIO_UPLOAD_LIMIT")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		ArtifactBucket:    getEnvOrDefault("ARTIFACT_BUCKET_NAME", defaultArtifactBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		UploadImagesLimit: uploadLimit,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 15 * time.Second
		defaultWriteTimeout = 30 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

// LoadPGDBCfg экспортирован для CLI индексатора, которому не нужна остальная конфигурация.
func LoadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	return loadPGDBCfg(log)
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMaxConns      = 10
		defaultMigrationsURL = "file://db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:      int32(maxConns),
		MigrationsURL: getEnvOrDefault("MIGRATIONS_URL", defaultMigrationsURL),
	}, nil
}

// LoadQdrantCfg экспортирован для CLI индексатора.
func LoadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	return loadQdrantCfg(log)
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultCollection     = "product_images"
	)

	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	return &QdrantCfg{
		Host:           getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:           port,
		ApiKey:         getEnv("QDRANT__SERVICE__API_KEY"),
		CollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:         useTLS,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 3 * time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
		ProductTTL:  productTTL,
	}, nil
}

// LoadMLServiceCfg экспортирован для CLI индексатора.
func LoadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	return loadMLServiceCfg(log)
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultHost          = "ml-service"
		defaultPort          = "50051"
		defaultMaxConcurrent = 8
		defaultMaxRetries    = 3
		defaultTimeout       = 10 * time.Second
	)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_CONCURRENT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("ML_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_RETRIES")
		return nil, err
	}

	timeout, err := parseDurationEnv("ML_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_TIMEOUT")
		return nil, err
	}

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	return &MLServiceCfg{
		Addr:          host + ":" + port,
		MaxConcurrent: maxConcurrent,
		MaxRetries:    maxRetries,
		Timeout:       timeout,
	}, nil
}

func loadAuthCfg(log logger.Logger) (*AuthCfg, error) {
	const (
		defaultTTL        = time.Hour
		defaultBcryptCost = 12
		minSecretLength   = 16
	)

	secret := getEnv("JWT_SECRET_KEY")
	if len(secret) < minSecretLength {
		err := fmt.Errorf("JWT_SECRET_KEY must be at least %d characters", minSecretLength)
		log.Errorf(err, "invalid JWT_SECRET_KEY")
		return nil, err
	}

	ttl, err := parseDurationEnv("JWT_ACCESS_TOKEN_EXPIRES", defaultTTL)
	if err != nil {
		log.Errorf(err, "invalid JWT_ACCESS_TOKEN_EXPIRES")
		return nil, err
	}

	cost, err := parseIntEnv("BCRYPT_COST", defaultBcryptCost)
	if err != nil {
		log.Errorf(err, "invalid BCRYPT_COST")
		return nil, err
	}

	return &AuthCfg{
		JWTSecret:      secret,
		AccessTokenTTL: ttl,
		BcryptCost:     cost,
	}, nil
}

// LoadSimilarityCfg читает настройки поиска похожих изображений.
func LoadSimilarityCfg(log logger.Logger) (*SimilarityCfg, error) {
	const (
		defaultSource        = SourceFile
		defaultArtifactDir   = "data"
		defaultEncoder       = EncoderMLService
		defaultVectorSize    = 512
		defaultThumbnailSide = 8
		defaultTopK          = 5
		defaultMaxTopK       = 50
		defaultSearchRPS     = 20.0
		defaultSearchBurst   = 40
	)

	source := strings.ToLower(getEnvOrDefault("SIMILARITY_SOURCE", defaultSource))
	switch source {
	case SourceFile, SourceMinio, SourceNone:
	default:
		err := fmt.Errorf("unknown SIMILARITY_SOURCE %q: %w", source, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid SIMILARITY_SOURCE")
		return nil, err
	}

	encoder := strings.ToLower(getEnvOrDefault("SIMILARITY_ENCODER", defaultEncoder))
	switch encoder {
	case EncoderMLService, EncoderThumbnail:
	default:
		err := fmt.Errorf("unknown SIMILARITY_ENCODER %q: %w", encoder, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid SIMILARITY_ENCODER")
		return nil, err
	}

	side, err := parseIntEnv("SIMILARITY_THUMBNAIL_SIDE", defaultThumbnailSide)
	if err != nil || side <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SIMILARITY_THUMBNAIL_SIDE")
		return nil, e.Wrap("SIMILARITY_THUMBNAIL_SIDE", e.ErrIncorrectEnvVariable)
	}

	vectorSize, err := parseIntEnv("SIMILARITY_VECTOR_SIZE", defaultVectorSize)
	if err != nil || vectorSize <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SIMILARITY_VECTOR_SIZE")
		return nil, e.Wrap("SIMILARITY_VECTOR_SIZE", e.ErrIncorrectEnvVariable)
	}
	// У thumbnail-энкодера размерность определяется стороной миниатюры.
	if encoder == EncoderThumbnail {
		vectorSize = side * side * 3
	}

	topK, err := parseIntEnv("SIMILARITY_DEFAULT_TOP_K", defaultTopK)
	if err != nil {
		log.Errorf(err, "invalid SIMILARITY_DEFAULT_TOP_K")
		return nil, err
	}

	maxTopK, err := parseIntEnv("SIMILARITY_MAX_TOP_K", defaultMaxTopK)
	if err != nil {
		log.Errorf(err, "invalid SIMILARITY_MAX_TOP_K")
		return nil, err
	}

	if topK < 1 || topK > maxTopK {
		err := fmt.Errorf("default top_k %d is outside [1, %d]: %w", topK, maxTopK, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid SIMILARITY_DEFAULT_TOP_K")
		return nil, err
	}

	rps, err := strconv.ParseFloat(getEnvOrDefault("SIMILARITY_SEARCH_RPS", strconv.FormatFloat(defaultSearchRPS, 'f', -1, 64)), 64)
	if err != nil {
		log.Errorf(err, "invalid SIMILARITY_SEARCH_RPS")
		return nil, err
	}

	burst, err := parseIntEnv("SIMILARITY_SEARCH_BURST", defaultSearchBurst)
	if err != nil {
		log.Errorf(err, "invalid SIMILARITY_SEARCH_BURST")
		return nil, err
	}

	return &SimilarityCfg{
		Source:        source,
		ArtifactDir:   getEnvOrDefault("SIMILARITY_ARTIFACT_DIR", defaultArtifactDir),
		BuildID:       getEnv("SIMILARITY_BUILD_ID"),
		Encoder:       encoder,
		VectorSize:    vectorSize,
		ThumbnailSide: side,
		DefaultTopK:   topK,
		MaxTopK:       maxTopK,
		SearchRPS:     rps,
		SearchBurst:   burst,
	}, nil
}

func loadTracingCfg(log logger.Logger) (*TracingCfg, error) {
	const (
		defaultServiceName = "ecofinds"
		defaultEnvironment = "development"
		defaultSampleRate  = 1.0
	)

	rate, err := strconv.ParseFloat(getEnvOrDefault("OTEL_SAMPLE_RATE", strconv.FormatFloat(defaultSampleRate, 'f', -1, 64)), 64)
	if err != nil {
		log.Errorf(err, "invalid OTEL_SAMPLE_RATE")
		return nil, err
	}

	return &TracingCfg{
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", defaultServiceName),
		Environment:  getEnvOrDefault("APP_ENV", defaultEnvironment),
		SampleRate:   rate,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
