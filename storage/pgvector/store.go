// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension, for corpora too large for the embedded scan.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
)

var (
	// ErrConnStringRequired is returned when no connection string is configured.
	ErrConnStringRequired = errors.New("connection string required")

	// ErrInvalidTableName is returned for table names that are not plain identifiers.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrDimensionsRequired is returned when the vector size is not configured.
	ErrDimensionsRequired = errors.New("vector dimensions required")
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Config configures the PostgreSQL store.
type Config struct {
	ConnString string
	TableName  string
	Dimensions int
	// Lists is the ivfflat list count. Zero uses 100.
	Lists int
}

func (c *Config) normalize() error {
	if c.ConnString == "" {
		return ErrConnStringRequired
	}
	if c.TableName == "" {
		c.TableName = "noteseek_chunks"
	}
	if !identifier.MatchString(c.TableName) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, c.TableName)
	}
	if c.Dimensions <= 0 {
		return ErrDimensionsRequired
	}
	if c.Lists <= 0 {
		c.Lists = 100
	}
	return nil
}

// Store implements storage.VectorStore.
type Store struct {
	config Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New connects to PostgreSQL and creates the extension, table and indexes
// if they do not exist.
func New(ctx context.Context, config Config, opts ...Option) (*Store, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}

	s := &Store{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "pgvector", "table", config.TableName)

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", storage.ErrVectorBackend, err)
	}
	s.pool = pool

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				document_id TEXT NOT NULL,
				title TEXT,
				content_chunk TEXT,
				source_type TEXT NOT NULL,
				created_at TIMESTAMPTZ,
				chunk_index INTEGER NOT NULL,
				total_chunks INTEGER NOT NULL,
				embedding vector(%d)
			)`, s.config.TableName, s.config.Dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`,
			s.config.TableName, s.config.TableName),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)`,
			s.config.TableName, s.config.TableName, s.config.Lists),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: initialize: %w", storage.ErrVectorBackend, err)
		}
	}
	return nil
}

// Upsert inserts or replaces vectors in one transaction.
func (s *Store) Upsert(ctx context.Context, vectors ...core.EmbeddingVector) error {
	if len(vectors) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, title, content_chunk, source_type, created_at, chunk_index, total_chunks, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			title = EXCLUDED.title,
			content_chunk = EXCLUDED.content_chunk,
			source_type = EXCLUDED.source_type,
			created_at = EXCLUDED.created_at,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			embedding = EXCLUDED.embedding`,
		s.config.TableName)

	batch := &pgx.Batch{}
	for i := range vectors {
		v := &vectors[i]
		if len(v.Values) != s.config.Dimensions {
			return fmt.Errorf("%w: %s has %d values, index has %d",
				storage.ErrDimensionMismatch, v.ID, len(v.Values), s.config.Dimensions)
		}
		m := &v.Metadata
		batch.Queue(stmt,
			v.ID,
			m.DocumentID,
			sanitizeUTF8(m.Title),
			sanitizeUTF8(m.ContentChunk),
			string(m.SourceType),
			m.CreatedAt,
			m.ChunkIndex,
			m.TotalChunks,
			pgvector.NewVector(v.Values),
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", storage.ErrVectorBackend, err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: upsert: %w", storage.ErrVectorBackend, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrVectorBackend, err)
	}
	return nil
}

// Query returns the topK nearest chunks by cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]core.VectorMatch, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, fmt.Errorf("%w: topK and vector are required", storage.ErrInvalidQuery)
	}
	if len(vector) != s.config.Dimensions {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			storage.ErrDimensionMismatch, len(vector), s.config.Dimensions)
	}

	query := fmt.Sprintf(`
		SELECT id, document_id, title, content_chunk, source_type, created_at,
		       chunk_index, total_chunks, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1, id
		LIMIT $2`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", storage.ErrVectorBackend, err)
	}
	defer rows.Close()

	var matches []core.VectorMatch
	for rows.Next() {
		var (
			m          core.VectorMatch
			sourceType string
			title      *string
			chunk      *string
		)
		err := rows.Scan(
			&m.ID,
			&m.Metadata.DocumentID,
			&title,
			&chunk,
			&sourceType,
			&m.Metadata.CreatedAt,
			&m.Metadata.ChunkIndex,
			&m.Metadata.TotalChunks,
			&m.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", storage.ErrVectorBackend, err)
		}
		if title != nil {
			m.Metadata.Title = *title
		}
		if chunk != nil {
			m.Metadata.ContentChunk = *chunk
		}
		m.Metadata.SourceType = core.SourceType(sourceType)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", storage.ErrVectorBackend, err)
	}
	return matches, nil
}

// DeleteDocument removes every chunk of documentID.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.config.TableName)
	tag, err := s.pool.Exec(ctx, stmt, documentID)
	if err != nil {
		return fmt.Errorf("%w: delete: %w", storage.ErrVectorBackend, err)
	}
	s.logger.Debug("deleted document vectors", "document_id", documentID, "rows", tag.RowsAffected())
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.config.TableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", storage.ErrVectorBackend, err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// sanitizeUTF8 drops invalid byte sequences, which PostgreSQL rejects.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
