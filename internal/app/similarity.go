package app

import (
	"context"
	"fmt"
	"time"

	config "github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/domain"
	ml_service "github.com/DRSN-tech/ecofinds/internal/infrastructure/ml-service"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const artifactLoadTimeout = 2 * time.Minute

// BuildFinder читает журнал сборок индекса.
type BuildFinder interface {
	Latest(ctx context.Context) (*domain.IndexBuild, error)
	GetByBuildID(ctx context.Context, buildID uuid.UUID) (*domain.IndexBuild, error)
}

// snapshotAttacher: часть similarity.Service, нужная загрузчику.
type snapshotAttacher interface {
	Attach(snap *similarity.Snapshot) error
}

// artifactLoader находит и загружает артефакты индекса в фоне после старта серверов.
type artifactLoader struct {
	cfg    *config.SimilarityCfg
	store  similarity.ArtifactStore
	builds BuildFinder
	target snapshotAttacher
	logger logger.Logger
}

// location возвращает каталог (file) или префикс в бакете (minio).
func (l *artifactLoader) location(ctx context.Context) (string, error) {
	const op = "artifactLoader.location"

	switch l.cfg.Source {
	case config.SourceFile:
		return l.cfg.ArtifactDir, nil
	case config.SourceMinio:
		if l.builds == nil {
			return "", e.Wrap(op, e.ErrNoIndexBuilds)
		}
		build, err := l.findBuild(ctx)
		if err != nil {
			return "", e.Wrap(op, err)
		}
		return build.Location, nil
	default:
		return "", fmt.Errorf("%s: unknown source %q: %w", op, l.cfg.Source, e.ErrIncorrectEnvVariable)
	}
}

// findBuild: закреплённая через SIMILARITY_BUILD_ID сборка должна быть в index_builds,
// иначе берётся последняя.
func (l *artifactLoader) findBuild(ctx context.Context) (*domain.IndexBuild, error) {
	if l.cfg.BuildID == "" {
		return l.builds.Latest(ctx)
	}

	id, err := uuid.Parse(l.cfg.BuildID)
	if err != nil {
		return nil, fmt.Errorf("SIMILARITY_BUILD_ID %q: %w", l.cfg.BuildID, e.ErrIncorrectEnvVariable)
	}
	return l.builds.GetByBuildID(ctx, id)
}

// load блокируется до загрузки или ошибки. Ошибка не останавливает приложение.
func (l *artifactLoader) load(ctx context.Context) error {
	const op = "artifactLoader.load"

	if l.cfg.Source == config.SourceNone {
		l.logger.Warnf("similarity index source is 'none', similar-image search stays unavailable")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, artifactLoadTimeout)
	defer cancel()

	loc, err := l.location(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	l.logger.Infof("loading similarity index from %s (%s)", loc, l.cfg.Source)

	snap, err := l.store.Load(ctx, loc)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := l.target.Attach(snap); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// NewEncoder выбирает энкодер изображений по SIMILARITY_ENCODER. Для ml-service
// возвращает и функцию закрытия gRPC-соединения.
func NewEncoder(cfg *config.Config, log logger.Logger) (similarity.Encoder, func() error, error) {
	const op = "app.NewEncoder"

	switch cfg.Similarity.Encoder {
	case config.EncoderThumbnail:
		return similarity.NewThumbnailEncoder(cfg.Similarity.ThumbnailSide), func() error { return nil }, nil
	case config.EncoderMLService:
		conn, err := grpc.NewClient(
			cfg.Ml.Addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, nil, e.Wrap(op, err)
		}
		return ml_service.NewMLService(conn, cfg.Ml, cfg.Similarity.VectorSize, log), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("%s: unknown encoder %q: %w", op, cfg.Similarity.Encoder, e.ErrIncorrectEnvVariable)
	}
}
