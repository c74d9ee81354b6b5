package indexer

import (
	"context"
	"fmt"

	config "github.com/DRSN-tech/ecofinds/internal/cfg"
	s3Repo "github.com/DRSN-tech/ecofinds/internal/repository/minio"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/pkg/clients"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/DRSN-tech/ecofinds/pkg/postgres"
	"github.com/minio/minio-go/v7"
)

// Источники каталога
const (
	SourceManifest = "manifest"
	SourceGlob     = "glob"
	SourceDB       = "db"
)

// Хранилища артефактов
const (
	StoreFile  = "file"
	StoreMinio = "minio"
)

// env лениво поднимает внешние зависимости: команда открывает только то, что ей нужно.
type env struct {
	logger logger.Logger

	db    *postgres.PgDatabase
	minio *minio.Client
	mcfg  *config.MinIOCfg
}

func (v *env) database(ctx context.Context) (*postgres.PgDatabase, error) {
	if v.db != nil {
		return v.db, nil
	}

	pgCfg, err := config.LoadPGDBCfg(v.logger)
	if err != nil {
		return nil, err
	}
	db, err := postgres.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	v.db = db
	return db, nil
}

func (v *env) minioClient(ctx context.Context) (*minio.Client, *config.MinIOCfg, error) {
	if v.minio != nil {
		return v.minio, v.mcfg, nil
	}

	mcfg, err := config.LoadMinIOCfg(v.logger)
	if err != nil {
		return nil, nil, err
	}
	mc, err := clients.NewMinIOClient(mcfg)
	if err != nil {
		return nil, nil, err
	}
	if err := clients.EnsureBuckets(ctx, mc, mcfg.BucketName, mcfg.ArtifactBucket); err != nil {
		return nil, nil, err
	}

	v.minio, v.mcfg = mc, mcfg
	return mc, mcfg, nil
}

func (v *env) close() {
	if v.db != nil {
		v.db.Close()
	}
}

// catalog возвращает записи каталога и источник, из которого читаются их изображения.
func (v *env) catalog(ctx context.Context, o *BuildOptions) ([]similarity.CatalogEntry, similarity.ImageSource, error) {
	const op = "indexer.catalog"

	switch o.Source {
	case SourceManifest:
		entries, err := similarity.LoadManifestFile(o.Manifest)
		return entries, similarity.FileSource{}, err
	case SourceGlob:
		entries, err := similarity.GlobCatalog(o.Dir, o.Pattern)
		return entries, similarity.FileSource{}, err
	case SourceDB:
		db, err := v.database(ctx)
		if err != nil {
			return nil, nil, e.Wrap(op, err)
		}
		mc, mcfg, err := v.minioClient(ctx)
		if err != nil {
			return nil, nil, e.Wrap(op, err)
		}
		entries, err := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConv{}).CatalogImages(ctx)
		return entries, s3Repo.NewImageRepo(mc, mcfg), err
	default:
		return nil, nil, fmt.Errorf("%s: unknown source %q: %w", op, o.Source, e.ErrStatusBadRequest)
	}
}

// store выбирает хранилище артефактов. dir используется только файловым хранилищем.
func (v *env) store(ctx context.Context, kind, dir string) (similarity.ArtifactStore, error) {
	const op = "indexer.store"

	switch kind {
	case StoreFile:
		return similarity.NewFileStore(dir), nil
	case StoreMinio:
		mc, mcfg, err := v.minioClient(ctx)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		return s3Repo.NewArtifactRepo(mc, mcfg), nil
	default:
		return nil, fmt.Errorf("%s: unknown store %q: %w", op, kind, e.ErrStatusBadRequest)
	}
}
