package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/noteseek/core"
)

// Values are encoded field by field with mus primitives. Floats travel as
// their IEEE-754 bit patterns and times as Unix nanoseconds.

func sizeFloats(v []float32) int {
	n := varint.Int64.Size(int64(len(v)))
	for _, f := range v {
		n += varint.Uint32.Size(math.Float32bits(f))
	}
	return n
}

func marshalFloats(v []float32, bs []byte) int {
	n := varint.Int64.Marshal(int64(len(v)), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func unmarshalFloats(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > int64(len(bs)) {
		return nil, n, ErrTruncatedData
	}
	out := make([]float32, length)
	for i := range out {
		bits, m, err := varint.Uint32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		out[i] = math.Float32frombits(bits)
	}
	return out, n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixNano())
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixNano(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	nanos, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.Unix(0, nanos).UTC(), n, nil
}

func sizeInt(v int) int {
	return varint.Int64.Size(int64(v))
}

func marshalInt(v int, bs []byte) int {
	return varint.Int64.Marshal(int64(v), bs)
}

func unmarshalInt(bs []byte) (int, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	return int(v), n, err
}

// fieldReader threads an offset and the first error through a sequence
// of unmarshal calls.
type fieldReader struct {
	bs  []byte
	n   int
	err error
}

func (r *fieldReader) string() string {
	if r.err != nil {
		return ""
	}
	v, m, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *fieldReader) int() int {
	if r.err != nil {
		return 0
	}
	v, m, err := unmarshalInt(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *fieldReader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, m, err := unmarshalTime(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *fieldReader) floats() []float32 {
	if r.err != nil {
		return nil
	}
	v, m, err := unmarshalFloats(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *fieldReader) finish() error {
	if r.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return nil
}

// MarshalEmbeddingVector encodes a chunk vector with its metadata.
func MarshalEmbeddingVector(v *core.EmbeddingVector) []byte {
	m := &v.Metadata
	size := ord.String.Size(v.ID) +
		sizeFloats(v.Values) +
		ord.String.Size(m.DocumentID) +
		ord.String.Size(m.Title) +
		ord.String.Size(m.ContentChunk) +
		ord.String.Size(string(m.SourceType)) +
		sizeTime(m.CreatedAt) +
		sizeInt(m.ChunkIndex) +
		sizeInt(m.TotalChunks)

	buf := make([]byte, size)
	n := ord.String.Marshal(v.ID, buf)
	n += marshalFloats(v.Values, buf[n:])
	n += ord.String.Marshal(m.DocumentID, buf[n:])
	n += ord.String.Marshal(m.Title, buf[n:])
	n += ord.String.Marshal(m.ContentChunk, buf[n:])
	n += ord.String.Marshal(string(m.SourceType), buf[n:])
	n += marshalTime(m.CreatedAt, buf[n:])
	n += marshalInt(m.ChunkIndex, buf[n:])
	marshalInt(m.TotalChunks, buf[n:])
	return buf
}

// UnmarshalEmbeddingVector decodes a value written by MarshalEmbeddingVector.
func UnmarshalEmbeddingVector(data []byte) (*core.EmbeddingVector, error) {
	r := &fieldReader{bs: data}
	v := &core.EmbeddingVector{}
	v.ID = r.string()
	v.Values = r.floats()
	v.Metadata.DocumentID = r.string()
	v.Metadata.Title = r.string()
	v.Metadata.ContentChunk = r.string()
	v.Metadata.SourceType = core.SourceType(r.string())
	v.Metadata.CreatedAt = r.time()
	v.Metadata.ChunkIndex = r.int()
	v.Metadata.TotalChunks = r.int()
	if err := r.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalCachedEmbedding encodes a persisted embedding cache entry.
func MarshalCachedEmbedding(e *CachedEmbedding) []byte {
	buf := make([]byte, sizeTime(e.StoredAt)+sizeFloats(e.Vector))
	n := marshalTime(e.StoredAt, buf)
	marshalFloats(e.Vector, buf[n:])
	return buf
}

// UnmarshalCachedEmbedding decodes a value written by MarshalCachedEmbedding.
func UnmarshalCachedEmbedding(data []byte) (*CachedEmbedding, error) {
	r := &fieldReader{bs: data}
	e := &CachedEmbedding{}
	e.StoredAt = r.time()
	e.Vector = r.floats()
	if err := r.finish(); err != nil {
		return nil, err
	}
	return e, nil
}

// MarshalCheckpoint encodes a reindex checkpoint.
func MarshalCheckpoint(c *IndexCheckpoint) []byte {
	size := ord.String.Size(c.Name) +
		ord.String.Size(c.EmbeddingModel) +
		ord.String.Size(c.LastDocumentID) +
		sizeInt(c.Processed) +
		sizeTime(c.UpdatedAt)

	buf := make([]byte, size)
	n := ord.String.Marshal(c.Name, buf)
	n += ord.String.Marshal(c.EmbeddingModel, buf[n:])
	n += ord.String.Marshal(c.LastDocumentID, buf[n:])
	n += marshalInt(c.Processed, buf[n:])
	marshalTime(c.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalCheckpoint decodes a value written by MarshalCheckpoint.
func UnmarshalCheckpoint(data []byte) (*IndexCheckpoint, error) {
	r := &fieldReader{bs: data}
	c := &IndexCheckpoint{}
	c.Name = r.string()
	c.EmbeddingModel = r.string()
	c.LastDocumentID = r.string()
	c.Processed = r.int()
	c.UpdatedAt = r.time()
	if err := r.finish(); err != nil {
		return nil, err
	}
	return c, nil
}
