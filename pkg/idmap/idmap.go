// Package idmap хранит соответствие «номер строки индекса → ID товара».
package idmap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/google/uuid"
)

const formatVersion = 1

// Map: упорядоченный список ID товаров; позиция в списке равна номеру строки индекса.
type Map struct {
	buildID    uuid.UUID
	productIDs []int64
}

type document struct {
	Version    int     `json:"version"`
	BuildID    string  `json:"build_id"`
	ProductIDs []int64 `json:"product_ids"`
}

// New копирует ids, чтобы вызывающий не мог изменить таблицу после сборки.
func New(buildID uuid.UUID, ids []int64) *Map {
	return &Map{
		buildID:    buildID,
		productIDs: slices.Clone(ids),
	}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.productIDs)
}

func (m *Map) BuildID() uuid.UUID {
	if m == nil {
		return uuid.Nil
	}
	return m.buildID
}

// Resolve возвращает ID товара для строки row.
func (m *Map) Resolve(row int) (int64, error) {
	if row < 0 || row >= m.Len() {
		return 0, fmt.Errorf("row %d of %d: %w", row, m.Len(), e.ErrOutOfRange)
	}

	return m.productIDs[row], nil
}

func (m *Map) WriteTo(w io.Writer) (int64, error) {
	const op = "Map.WriteTo"

	ids := m.productIDs
	if ids == nil {
		ids = []int64{}
	}

	raw, err := json.Marshal(document{
		Version:    formatVersion,
		BuildID:    m.buildID.String(),
		ProductIDs: ids,
	})
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	n, err := w.Write(raw)
	if err != nil {
		return int64(n), e.Wrap(op, err)
	}

	return int64(n), nil
}

func Read(r io.Reader) (*Map, error) {
	const op = "idmap.Read"

	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, e.ErrCorruptedArtifact, err)
	}

	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%s: unsupported version %d: %w", op, doc.Version, e.ErrCorruptedArtifact)
	}

	buildID, err := uuid.Parse(doc.BuildID)
	if err != nil {
		return nil, fmt.Errorf("%s: build_id: %w: %w", op, e.ErrCorruptedArtifact, err)
	}

	return &Map{buildID: buildID, productIDs: doc.ProductIDs}, nil
}

// Save атомарно записывает таблицу в файл.
func (m *Map) Save(path string) error {
	const op = "Map.Save"

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return e.Wrap(op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := m.WriteTo(tmp); err != nil {
		tmp.Close()
		return e.Wrap(op, err)
	}

	if err := tmp.Close(); err != nil {
		return e.Wrap(op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func Load(path string) (*Map, error) {
	const op = "idmap.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, e.Wrap(path, err)
	}

	return m, nil
}

// CheckLockStep проверяет, что индекс и таблица получены одной сборкой.
func CheckLockStep(m *Map, indexBuildID uuid.UUID, indexRows int) error {
	if m.BuildID() != indexBuildID {
		return fmt.Errorf("index build %s, id map build %s: %w", indexBuildID, m.BuildID(), e.ErrArtifactMismatch)
	}

	if m.Len() != indexRows {
		return fmt.Errorf("index has %d rows, id map has %d entries: %w", indexRows, m.Len(), e.ErrArtifactMismatch)
	}

	return nil
}
