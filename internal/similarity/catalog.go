package similarity

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Manifest: YAML-описание каталога для сборки:
//
//	entries:
//	  - product_id: 10
//	    image: images/10/front.jpg
type Manifest struct {
	Entries []CatalogEntry `yaml:"entries"`
}

// ParseManifest читает манифест. Относительные пути изображений остаются как есть.
func ParseManifest(r io.Reader) ([]CatalogEntry, error) {
	const op = "similarity.ParseManifest"

	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, e.Wrap(op, e.ErrEmptyCatalog)
		}
		return nil, e.Wrap(op, err)
	}

	for i, entry := range m.Entries {
		if entry.ProductID <= 0 || strings.TrimSpace(entry.ImageRef) == "" {
			return nil, fmt.Errorf("%s: entry %d: product_id and image are required: %w", op, i, e.ErrMissingFields)
		}
	}

	return m.Entries, nil
}

// LoadManifestFile читает манифест с диска; относительные пути разрешаются от каталога манифеста.
func LoadManifestFile(manifestPath string) ([]CatalogEntry, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, e.Wrap("similarity.LoadManifestFile", err)
	}
	defer f.Close()

	entries, err := ParseManifest(f)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(manifestPath)
	for i := range entries {
		if !filepath.IsAbs(entries[i].ImageRef) {
			entries[i].ImageRef = filepath.Join(base, entries[i].ImageRef)
		}
	}

	return entries, nil
}

// GlobCatalog собирает каталог из файлов root, подходящих под doublestar-шаблон.
// ID товара берётся из имени родительского каталога (10/front.jpg), а если оно не число, то
// из имени файла (10.jpg). Файлы без числового ID пропускаются. Порядок: лексикографический.
func GlobCatalog(root, pattern string) ([]CatalogEntry, error) {
	const op = "similarity.GlobCatalog"

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	slices.Sort(matches)

	entries := make([]CatalogEntry, 0, len(matches))
	for _, match := range matches {
		productID, ok := productIDFromPath(match)
		if !ok {
			continue
		}
		entries = append(entries, CatalogEntry{
			ProductID: productID,
			ImageRef:  filepath.Join(root, filepath.FromSlash(match)),
		})
	}

	return entries, nil
}

func productIDFromPath(p string) (int64, bool) {
	if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" {
		if id, err := strconv.ParseInt(dir, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}

	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if id, err := strconv.ParseInt(stem, 10, 64); err == nil && id > 0 {
		return id, true
	}

	return 0, false
}

// FileSource читает изображения с локального диска.
type FileSource struct{}

func (FileSource) Open(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(ref)
}
