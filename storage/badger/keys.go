package badger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/poiesic/noteseek/storage"
)

// Key prefixes for different data types
const (
	vectorPrefix     = "vec:"
	vectorDocPrefix  = "vecdoc:"
	embeddingPrefix  = "emb:"
	checkpointPrefix = "chkpt:"

	scanCheckInterval = 256
)

var errClosed = fmt.Errorf("badger: %w", storage.ErrStorageClosed)

var errBadIndexKey = errors.New("malformed document index key")

// makeVectorKey generates the primary key for a chunk vector.
func makeVectorKey(chunkID string) []byte {
	return []byte(vectorPrefix + chunkID)
}

// makeVectorDocKey generates the document index key for a chunk.
// Format: prefix:documentID\x00chunkID
func makeVectorDocKey(documentID, chunkID string) []byte {
	buf := make([]byte, 0, len(vectorDocPrefix)+len(documentID)+1+len(chunkID))
	buf = append(buf, vectorDocPrefix...)
	buf = append(buf, documentID...)
	buf = append(buf, 0)
	return append(buf, chunkID...)
}

// makePartialVectorDocKey generates the prefix for all chunks of a document.
func makePartialVectorDocKey(documentID string) []byte {
	buf := make([]byte, 0, len(vectorDocPrefix)+len(documentID)+1)
	buf = append(buf, vectorDocPrefix...)
	buf = append(buf, documentID...)
	return append(buf, 0)
}

// chunkIDFromDocKey extracts the chunk ID from a document index key.
func chunkIDFromDocKey(key []byte, documentID string) (string, error) {
	prefixLen := len(vectorDocPrefix) + len(documentID) + 1
	if len(key) <= prefixLen {
		return "", errBadIndexKey
	}
	return string(key[prefixLen:]), nil
}

// makeEmbeddingKey generates the key for a cached embedding.
// Hashes are written BigEndian so keys sort numerically.
func makeEmbeddingKey(hash uint64) []byte {
	buf := make([]byte, len(embeddingPrefix)+8)
	offset := copy(buf, embeddingPrefix)
	binary.BigEndian.PutUint64(buf[offset:], hash)
	return buf
}

// makeCheckpointKey generates a key for reindex checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
