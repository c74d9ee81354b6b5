package similarity

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/idmap"
	"github.com/DRSN-tech/ecofinds/pkg/vectorindex"
)

// Имена файлов артефактов внутри каталога или префикса сборки.
const (
	IndexFileName = "product_image.index"
	IDMapFileName = "product_ids.json"
)

// ArtifactStore сохраняет и загружает артефакты сборки.
// location: каталог для файлового хранилища или префикс сборки в бакете.
type ArtifactStore interface {
	Save(ctx context.Context, a *Artifacts) (location string, err error)
	Load(ctx context.Context, location string) (*Snapshot, error)
}

// FileStore хранит артефакты в локальном каталоге.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save пишет сначала таблицу, потом индекс. Оба файла пишутся атомарно,
// а несогласованная пара отсекается проверкой build ID при загрузке.
func (f *FileStore) Save(ctx context.Context, a *Artifacts) (string, error) {
	const op = "FileStore.Save"

	if err := ctx.Err(); err != nil {
		return "", e.Wrap(op, err)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", e.Wrap(op, err)
	}

	if err := a.IDs.Save(filepath.Join(f.dir, IDMapFileName)); err != nil {
		return "", e.Wrap(op, err)
	}

	if err := a.Index.Save(filepath.Join(f.dir, IndexFileName)); err != nil {
		return "", e.Wrap(op, err)
	}

	return f.dir, nil
}

// Load читает артефакты из location, а при пустом location: из каталога хранилища.
func (f *FileStore) Load(ctx context.Context, location string) (*Snapshot, error) {
	const op = "FileStore.Load"

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	dir := f.dir
	if location != "" {
		dir = location
	}

	index, err := vectorindex.Load(filepath.Join(dir, IndexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Join(e.Wrap(op, e.ErrIndexNotLoaded), err)
		}
		return nil, e.Wrap(op, err)
	}

	ids, err := idmap.Load(filepath.Join(dir, IDMapFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Join(e.Wrap(op, e.ErrIndexNotLoaded), err)
		}
		return nil, e.Wrap(op, err)
	}

	snap, err := NewSnapshot(index, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return snap, nil
}
