package clients

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewMinIOClient(cfg *cfg.MinIOCfg) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return minioClient, nil
}

// EnsureBuckets создаёт недостающие бакеты (изображения товаров и артефакты индекса).
func EnsureBuckets(ctx context.Context, client *minio.Client, bucketNames ...string) error {
	seen := make(map[string]struct{}, len(bucketNames))
	for _, name := range bucketNames {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		exists, err := client.BucketExists(ctx, name)
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}

		if !exists {
			if err := client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
				return e.Wrap(whereami.WhereAmI(), err)
			}
		}
	}

	return nil
}
