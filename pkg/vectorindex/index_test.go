package vectorindex

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, dim int, vecs ...[]float32) *Index {
	t.Helper()

	idx, err := New(dim)
	require.NoError(t, err)

	for i, v := range vecs {
		row, err := idx.Add(v)
		require.NoError(t, err)
		require.Equal(t, i, row)
	}

	return idx
}

func rows(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.Row
	}
	return out
}

func TestIndex_Search(t *testing.T) {
	idx := newIndex(t, 2,
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 1},
		[]float32{10, 10},
	)

	tests := []struct {
		name     string
		query    []float32
		k        int
		wantRows []int
	}{
		{name: "exact match first", query: []float32{3, 4}, k: 2, wantRows: []int{1, 2}},
		{name: "k larger than rows", query: []float32{0, 0}, k: 10, wantRows: []int{0, 2, 1, 3}},
		{name: "k equals one", query: []float32{9, 9}, k: 1, wantRows: []int{3}},
		{name: "zero k", query: []float32{0, 0}, k: 0, wantRows: []int{}},
		{name: "negative k", query: []float32{0, 0}, k: -3, wantRows: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(tt.query, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, rows(hits))

			for i := 1; i < len(hits); i++ {
				assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
			}
		})
	}
}

func TestIndex_SearchDistanceIsSquaredL2(t *testing.T) {
	idx := newIndex(t, 2, []float32{3, 4})

	hits, err := idx.Search([]float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 25, hits[0].Distance, 1e-6)
}

func TestIndex_SearchTiesPreferLowerRow(t *testing.T) {
	idx := newIndex(t, 1,
		[]float32{2},
		[]float32{-1},
		[]float32{1},
		[]float32{-1},
	)

	hits, err := idx.Search([]float32{0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, rows(hits))

	// Граница k проходит через ничью: строки 1, 2, 3 на одном расстоянии.
	hits, err = idx.Search([]float32{0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rows(hits))

	hits, err = idx.Search([]float32{0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 0}, rows(hits))
}

func TestIndex_SearchEmpty(t *testing.T) {
	idx := newIndex(t, 3)

	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_SearchNil(t *testing.T) {
	var idx *Index

	_, err := idx.Search([]float32{1}, 5)
	require.ErrorIs(t, err, e.ErrIndexNotLoaded)
	assert.Zero(t, idx.RowCount())
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx := newIndex(t, 3, []float32{1, 2, 3})

	_, err := idx.Search([]float32{1, 2}, 1)
	require.ErrorIs(t, err, e.ErrDimensionMismatch)

	_, err = idx.Add([]float32{1, 2, 3, 4})
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.RowCount())

	_, err = New(0)
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestIndex_Vector(t *testing.T) {
	idx := newIndex(t, 2, []float32{1, 2}, []float32{3, 4})

	v, err := idx.Vector(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, v)

	// Копия не должна менять индекс.
	v[0] = 100
	again, err := idx.Vector(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, again)

	_, err = idx.Vector(2)
	require.ErrorIs(t, err, e.ErrOutOfRange)
}

func TestIndex_RoundTripIsBitExact(t *testing.T) {
	idx := newIndex(t, 3,
		[]float32{0.1, -0.2, 0.3},
		[]float32{float32(math.Pi), math.SmallestNonzeroFloat32, math.MaxFloat32},
		[]float32{-0, 1e-30, 7},
	)
	buildID := uuid.New()
	idx.SetBuildID(buildID)

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	restored, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, idx.Dimension(), restored.Dimension())
	assert.Equal(t, idx.RowCount(), restored.RowCount())
	assert.Equal(t, buildID, restored.BuildID())
	require.Len(t, restored.data, len(idx.data))
	for i := range idx.data {
		assert.Equal(t, math.Float32bits(idx.data[i]), math.Float32bits(restored.data[i]), "element %d", i)
	}

	query := []float32{0.1, -0.2, 0.25}
	want, err := idx.Search(query, 3)
	require.NoError(t, err)
	got, err := restored.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndex_RoundTripEmpty(t *testing.T) {
	idx := newIndex(t, 4)

	var buf bytes.Buffer
	_, err := idx.WriteTo(&buf)
	require.NoError(t, err)

	restored, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Dimension())
	assert.Zero(t, restored.RowCount())
}

func TestIndex_SaveLoad(t *testing.T) {
	idx := newIndex(t, 2, []float32{1, 2}, []float32{3, 4})
	path := filepath.Join(t.TempDir(), "product_image.index")

	require.NoError(t, idx.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.RowCount())

	_, err = Load(filepath.Join(t.TempDir(), "missing.index"))
	require.Error(t, err)
}

func TestRead_RejectsCorruptedInput(t *testing.T) {
	idx := newIndex(t, 2, []float32{1, 2}, []float32{3, 4}, []float32{5, 6})

	var buf bytes.Buffer
	_, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.Bytes()

	t.Run("truncated", func(t *testing.T) {
		_, err := Read(bytes.NewReader(raw[:len(raw)/2]))
		require.ErrorIs(t, err, e.ErrCorruptedArtifact)
	})

	t.Run("not zstd", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte("definitely not an index")))
		require.ErrorIs(t, err, e.ErrCorruptedArtifact)
	})

	forged := []struct {
		name    string
		h       header
		payload []float32
	}{
		{
			name:    "row count overflows rows*dim",
			h:       header{Magic: magic, Version: formatVersion, Dimension: 4, Rows: 1 << 62},
			payload: []float32{1, 2, 3, 4},
		},
		{
			name: "row count above element limit",
			h:    header{Magic: magic, Version: formatVersion, Dimension: 512, Rows: maxElements/512 + 1},
		},
		{
			name: "dimension above limit",
			h:    header{Magic: magic, Version: formatVersion, Dimension: maxDimension + 1, Rows: 1},
		},
		{
			name:    "header claims more rows than stored",
			h:       header{Magic: magic, Version: formatVersion, Dimension: 2, Rows: 3},
			payload: []float32{1, 2, 3, 4},
		},
		{
			name: "bad magic",
			h:    header{Magic: [4]byte{'N', 'O', 'P', 'E'}, Version: formatVersion, Dimension: 2},
		},
	}

	for _, tt := range forged {
		t.Run(tt.name, func(t *testing.T) {
			restored, err := Read(bytes.NewReader(forgeStream(t, tt.h, tt.payload)))
			require.ErrorIs(t, err, e.ErrCorruptedArtifact)
			assert.Nil(t, restored)
		})
	}
}

// forgeStream пишет поток в формате WriteTo с произвольным заголовком и верной CRC.
func forgeStream(t *testing.T, h header, payload []float32) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)

	crc := crc32.NewIEEE()
	w := io.MultiWriter(enc, crc)
	require.NoError(t, binary.Write(w, binary.LittleEndian, h))
	if len(payload) > 0 {
		require.NoError(t, binary.Write(w, binary.LittleEndian, payload))
	}
	require.NoError(t, binary.Write(enc, binary.LittleEndian, crc.Sum32()))
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

func TestIndex_SearchMatchesExactScan(t *testing.T) {
	const dim, n = 8, 200

	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dim)
		for j := range vecs[i] {
			vecs[i][j] = float32((i*31+j*17)%23) / 7
		}
	}
	idx := newIndex(t, dim, vecs...)
	query := vecs[42]

	hits, err := idx.Search(query, 10)
	require.NoError(t, err)
	require.Len(t, hits, 10)
	assert.Equal(t, float32(0), hits[0].Distance)

	want := idx.resolveTie(query, 10)
	for i := range hits {
		assert.InDelta(t, want[i].Distance, hits[i].Distance, 1e-4)
	}
}
