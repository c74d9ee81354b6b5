package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/idmap"
	"github.com/DRSN-tech/ecofinds/pkg/vectorindex"
	"github.com/minio/minio-go/v7"
)

const artifactPrefix = "indexes"

// ArtifactRepo хранит артефакты сборки индекса в бакете под префиксом indexes/<build_id>/.
type ArtifactRepo struct {
	mc     *minio.Client
	bucket string
}

func NewArtifactRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ArtifactRepo {
	return &ArtifactRepo{mc: mc, bucket: cfg.ArtifactBucket}
}

// BuildPrefix возвращает префикс объектов сборки.
func BuildPrefix(buildID string) string {
	return path.Join(artifactPrefix, buildID)
}

// Save загружает сначала таблицу ID, затем индекс. Возвращает префикс сборки.
func (a *ArtifactRepo) Save(ctx context.Context, art *similarity.Artifacts) (string, error) {
	const op = "ArtifactRepo.Save"

	prefix := BuildPrefix(art.BuildID.String())

	if err := a.put(ctx, path.Join(prefix, similarity.IDMapFileName), "application/json", art.IDs); err != nil {
		return "", e.Wrap(op, err)
	}
	if err := a.put(ctx, path.Join(prefix, similarity.IndexFileName), "application/zstd", art.Index); err != nil {
		return "", e.Wrap(op, err)
	}

	return prefix, nil
}

// Load скачивает пару артефактов по префиксу и проверяет, что они из одной сборки.
func (a *ArtifactRepo) Load(ctx context.Context, location string) (*similarity.Snapshot, error) {
	const op = "ArtifactRepo.Load"

	location = strings.Trim(location, "/")
	if location == "" {
		return nil, e.Wrap(op, e.ErrIndexNotLoaded)
	}

	var index *vectorindex.Index
	err := a.get(ctx, path.Join(location, similarity.IndexFileName), func(r io.Reader) (err error) {
		index, err = vectorindex.Read(r)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var ids *idmap.Map
	err = a.get(ctx, path.Join(location, similarity.IDMapFileName), func(r io.Reader) (err error) {
		ids, err = idmap.Read(r)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snap, err := similarity.NewSnapshot(index, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return snap, nil
}

func (a *ArtifactRepo) put(ctx context.Context, key, contentType string, w io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return err
	}

	_, err := a.mc.PutObject(ctx, a.bucket, key, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (a *ArtifactRepo) get(ctx context.Context, key string, read func(io.Reader) error) error {
	obj, err := a.mc.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject ленивый: Stat выполняет запрос, и отсутствие объекта видно до декодирования.
	if _, err := obj.Stat(); err != nil {
		if isNoSuchKey(err) {
			return errors.Join(e.ErrIndexNotLoaded, fmt.Errorf("get %s: %w", key, err))
		}
		return fmt.Errorf("get %s: %w", key, err)
	}

	return read(obj)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
	}
	return false
}

var _ similarity.ArtifactStore = (*ArtifactRepo)(nil)
