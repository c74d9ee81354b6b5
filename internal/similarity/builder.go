package similarity

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/idmap"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/DRSN-tech/ecofinds/pkg/tracing"
	"github.com/DRSN-tech/ecofinds/pkg/vectorindex"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// CatalogEntry: одно изображение товара. ImageRef понимает конкретный ImageSource
// (путь к файлу или ключ объекта в MinIO).
type CatalogEntry struct {
	ProductID int64  `yaml:"product_id"`
	ImageRef  string `yaml:"image"`
}

// ImageSource отдаёт байты изображения по ссылке из каталога.
type ImageSource interface {
	Open(ctx context.Context, ref string) ([]byte, error)
}

// Artifacts: результат одной сборки. Index и IDs всегда согласованы.
type Artifacts struct {
	BuildID      uuid.UUID
	ModelVersion string
	CreatedAt    time.Time
	Index        *vectorindex.Index
	IDs          *idmap.Map
}

// Snapshot собирает из артефактов снимок для сервиса поиска.
func (a *Artifacts) Snapshot() (*Snapshot, error) {
	return NewSnapshot(a.Index, a.IDs)
}

// Points возвращает строки индекса в виде точек для внешнего векторного хранилища.
func (a *Artifacts) Points() ([]domain.IndexPoint, error) {
	points := make([]domain.IndexPoint, 0, a.Index.RowCount())
	for row := 0; row < a.Index.RowCount(); row++ {
		vec, err := a.Index.Vector(row)
		if err != nil {
			return nil, err
		}
		productID, err := a.IDs.Resolve(row)
		if err != nil {
			return nil, err
		}
		points = append(points, *domain.NewIndexPoint(uint64(row), productID, vec, a.BuildID.String()))
	}
	return points, nil
}

type Builder struct {
	embedder    ImageEmbedder
	source      ImageSource
	logger      logger.Logger
	parallelism int
	onProgress  func()
}

type BuilderOption func(*Builder)

// WithParallelism задаёт число одновременных эмбеддингов (по умолчанию GOMAXPROCS).
func WithParallelism(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.parallelism = n
		}
	}
}

// WithProgress вызывается после каждого обработанного изображения. Должен быть потокобезопасным.
func WithProgress(fn func()) BuilderOption {
	return func(b *Builder) {
		b.onProgress = fn
	}
}

func NewBuilder(embedder ImageEmbedder, source ImageSource, logger logger.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder:    embedder,
		source:      source,
		logger:      logger,
		parallelism: runtime.GOMAXPROCS(0),
		onProgress:  func() {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build эмбеддит все изображения каталога и собирает индекс, где строка i соответствует entries[i].
// Первая же ошибка прерывает сборку целиком: частичных артефактов не бывает.
func (b *Builder) Build(ctx context.Context, entries []CatalogEntry) (*Artifacts, error) {
	const op = "Builder.Build"

	if len(entries) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyCatalog)
	}

	ctx, span := tracing.Start(ctx, "similarity.build",
		attribute.Int("similarity.entries", len(entries)),
		attribute.String("similarity.model_version", b.embedder.ModelVersion()),
	)
	defer span.End()

	started := time.Now()
	vectors := make([][]float32, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for i, entry := range entries {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			raw, err := b.source.Open(gctx, entry.ImageRef)
			if err != nil {
				return fmt.Errorf("entry %d (product %d, %s): %w", i, entry.ProductID, entry.ImageRef, err)
			}

			vec, err := b.embedder.Embed(gctx, raw)
			if err != nil {
				return fmt.Errorf("entry %d (product %d, %s): %w", i, entry.ProductID, entry.ImageRef, err)
			}

			vectors[i] = vec
			b.onProgress()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		return nil, e.Wrap(op, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	index, err := vectorindex.New(b.embedder.Dimension())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	productIDs := make([]int64, len(entries))
	for i, vec := range vectors {
		if _, err := index.Add(vec); err != nil {
			return nil, e.Wrap(op, err)
		}
		productIDs[i] = entries[i].ProductID
	}

	buildID := uuid.New()
	index.SetBuildID(buildID)

	b.logger.Infof("index built: build=%s rows=%d dim=%d model=%s took=%s",
		buildID, index.RowCount(), index.Dimension(), b.embedder.ModelVersion(), time.Since(started))

	return &Artifacts{
		BuildID:      buildID,
		ModelVersion: b.embedder.ModelVersion(),
		CreatedAt:    time.Now().UTC(),
		Index:        index,
		IDs:          idmap.New(buildID, productIDs),
	}, nil
}
