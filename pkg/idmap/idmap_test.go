package idmap

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_Resolve(t *testing.T) {
	m := New(uuid.New(), []int64{10, 20, 30})

	tests := []struct {
		name    string
		row     int
		want    int64
		wantErr error
	}{
		{name: "first", row: 0, want: 10},
		{name: "last", row: 2, want: 30},
		{name: "past end", row: 3, wantErr: e.ErrOutOfRange},
		{name: "far past end", row: 5, wantErr: e.ErrOutOfRange},
		{name: "negative", row: -1, wantErr: e.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.row)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap_IsolatedFromCaller(t *testing.T) {
	ids := []int64{1, 2}
	m := New(uuid.New(), ids)
	ids[0] = 99

	got, err := m.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = m.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestMap_NilResolve(t *testing.T) {
	var m *Map
	_, err := m.Resolve(0)
	require.ErrorIs(t, err, e.ErrOutOfRange)
}

func TestMap_RoundTrip(t *testing.T) {
	buildID := uuid.New()
	m := New(buildID, []int64{7, 7, 3})

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"product_ids":[7,7,3]`)

	restored, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, buildID, restored.BuildID())
	assert.Equal(t, []int64{7, 7, 3}, resolveAll(t, restored))
}

func TestMap_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_ids.json")
	m := New(uuid.New(), []int64{})

	require.NoError(t, m.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, restored.Len())
	assert.Equal(t, m.BuildID(), restored.BuildID())
}

func TestRead_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "[1,2"},
		{name: "wrong version", doc: `{"version":2,"build_id":"` + uuid.NewString() + `","product_ids":[]}`},
		{name: "bad build id", doc: `{"version":1,"build_id":"nope","product_ids":[]}`},
		{name: "unknown field", doc: `{"version":1,"build_id":"` + uuid.NewString() + `","ids":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, e.ErrCorruptedArtifact)
		})
	}
}

func TestCheckLockStep(t *testing.T) {
	buildID := uuid.New()
	m := New(buildID, []int64{10, 20, 30})

	require.NoError(t, CheckLockStep(m, buildID, 3))
	require.ErrorIs(t, CheckLockStep(m, uuid.New(), 3), e.ErrArtifactMismatch)
	require.ErrorIs(t, CheckLockStep(m, buildID, 4), e.ErrArtifactMismatch)
}

func resolveAll(t *testing.T, m *Map) []int64 {
	t.Helper()

	out := make([]int64, m.Len())
	for row := range out {
		id, err := m.Resolve(row)
		require.NoError(t, err)
		out[row] = id
	}
	return out
}
