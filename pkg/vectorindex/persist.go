package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	formatVersion = 1
	// maxElements: предел rows*dim для заголовка (1 GiB float32).
	maxElements  = 1 << 28
	maxDimension = 1 << 16
)

var magic = [4]byte{'E', 'F', 'V', 'I'}

type header struct {
	Magic     [4]byte
	Version   uint32
	Dimension uint32
	Rows      uint64
	BuildID   [16]byte
}

// WriteTo сериализует индекс: zstd-поток из заголовка, построчных float32 (little-endian) и CRC32.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	const op = "Index.WriteTo"

	if idx == nil {
		return 0, e.Wrap(op, e.ErrIndexNotLoaded)
	}

	cw := &countingWriter{w: w}
	enc, err := zstd.NewWriter(cw)
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(enc, crc))

	h := header{
		Magic:     magic,
		Version:   formatVersion,
		Dimension: uint32(idx.dim),
		Rows:      uint64(idx.rows),
		BuildID:   idx.buildID,
	}

	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		enc.Close()
		return cw.n, e.Wrap(op, err)
	}

	if err := binary.Write(bw, binary.LittleEndian, idx.data); err != nil {
		enc.Close()
		return cw.n, e.Wrap(op, err)
	}

	if err := bw.Flush(); err != nil {
		enc.Close()
		return cw.n, e.Wrap(op, err)
	}

	if err := binary.Write(enc, binary.LittleEndian, crc.Sum32()); err != nil {
		enc.Close()
		return cw.n, e.Wrap(op, err)
	}

	if err := enc.Close(); err != nil {
		return cw.n, e.Wrap(op, err)
	}

	return cw.n, nil
}

// Read восстанавливает индекс, записанный WriteTo. Повреждённые данные дают e.ErrCorruptedArtifact.
func Read(r io.Reader) (*Index, error) {
	const op = "vectorindex.Read"

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, corrupted(op, err)
	}
	defer dec.Close()

	crc := crc32.NewIEEE()
	br := bufio.NewReader(dec)
	tee := io.TeeReader(br, crc)

	var h header
	if err := binary.Read(tee, binary.LittleEndian, &h); err != nil {
		return nil, corrupted(op, err)
	}

	if h.Magic != magic {
		return nil, corrupted(op, fmt.Errorf("bad magic %q", h.Magic[:]))
	}

	if h.Version != formatVersion {
		return nil, corrupted(op, fmt.Errorf("unsupported version %d", h.Version))
	}

	if h.Dimension == 0 || h.Dimension > maxDimension {
		return nil, corrupted(op, fmt.Errorf("dimension %d is out of bounds", h.Dimension))
	}

	// Сравнение через деление: произведение rows*dim может переполниться.
	if h.Rows > maxElements/uint64(h.Dimension) || h.Rows > math.MaxInt {
		return nil, corrupted(op, fmt.Errorf("%d rows of dimension %d is too large", h.Rows, h.Dimension))
	}

	idx, err := New(int(h.Dimension))
	if err != nil {
		return nil, corrupted(op, err)
	}
	idx.buildID = uuid.UUID(h.BuildID)

	// Строки читаются по одной: память растёт только вместе с реально прочитанными данными.
	for i := uint64(0); i < h.Rows; i++ {
		vec := make([]float32, h.Dimension)
		if err := binary.Read(tee, binary.LittleEndian, vec); err != nil {
			return nil, corrupted(op, fmt.Errorf("row %d: %w", i, err))
		}
		if _, err := idx.Add(vec); err != nil {
			return nil, corrupted(op, err)
		}
	}

	var sum uint32
	if err := binary.Read(br, binary.LittleEndian, &sum); err != nil {
		return nil, corrupted(op, err)
	}

	if sum != crc.Sum32() {
		return nil, corrupted(op, errors.New("checksum mismatch"))
	}

	return idx, nil
}

// Save атомарно записывает индекс в файл: через временный файл и rename.
func (idx *Index) Save(path string) error {
	const op = "Index.Save"

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return e.Wrap(op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := idx.WriteTo(tmp); err != nil {
		tmp.Close()
		return e.Wrap(op, err)
	}

	if err := tmp.Sync(); err != nil {
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

// Load читает индекс из файла.
func Load(path string) (*Index, error) {
	const op = "vectorindex.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer f.Close()

	idx, err := Read(f)
	if err != nil {
		return nil, e.Wrap(path, err)
	}

	return idx, nil
}

func corrupted(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, e.ErrCorruptedArtifact, err)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
