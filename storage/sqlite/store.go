// Package sqlite provides a note store backed by SQLite. It is the
// corpus source for the CLI and the seeding tool.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/storage"
	"github.com/poiesic/noteseek/textproc"
)

// Content formats stored alongside each body.
const (
	FormatText = "text"
	FormatHTML = "html"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content TEXT,
	content_format TEXT NOT NULL DEFAULT 'text',
	source_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	channel_name TEXT,
	video_id TEXT
);
CREATE INDEX IF NOT EXISTS documents_source_type_idx ON documents (source_type);
`

// Store implements storage.DocumentStore on SQLite.
type Store struct {
	db   *sql.DB
	path string
	// defaultFormat is used for documents written through PutDocuments.
	defaultFormat string
}

var _ storage.DocumentStore = (*Store)(nil)

// Open opens or creates the database at path. The special path ":memory:"
// opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path, defaultFormat: FormatText}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ListDocuments returns every document ordered by ID. HTML bodies are
// flattened to plain text.
func (s *Store) ListDocuments(ctx context.Context) ([]core.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, content_format, source_type, created_at, channel_name, video_id
		FROM documents
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns the document with id.
func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, content_format, source_type, created_at, channel_name, video_id
		FROM documents
		WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return doc, err
}

// PutDocuments inserts or replaces documents as plain text.
func (s *Store) PutDocuments(ctx context.Context, docs ...core.Document) error {
	entries := make([]Entry, len(docs))
	for i, d := range docs {
		entries[i] = Entry{Document: d, Format: s.defaultFormat}
	}
	return s.PutEntries(ctx, entries...)
}

// Entry is a document together with the format of its body.
type Entry struct {
	core.Document
	Format string
}

// PutEntries inserts or replaces documents, recording each body format.
func (s *Store) PutEntries(ctx context.Context, entries ...Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, title, content, content_format, source_type, created_at, channel_name, video_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_format = excluded.content_format,
			source_type = excluded.source_type,
			created_at = excluded.created_at,
			channel_name = excluded.channel_name,
			video_id = excluded.video_id`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if err := core.ValidateDocument(&e.Document); err != nil {
			return err
		}
		format := e.Format
		if format == "" {
			format = FormatText
		}
		_, err := stmt.ExecContext(ctx,
			e.ID,
			e.Title,
			nullString(e.Content),
			format,
			string(e.SourceType),
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
			nullString(e.ChannelName),
			nullString(e.VideoID),
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteDocument removes the document with id.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*core.Document, error) {
	var (
		doc                         core.Document
		content, channel, videoID   sql.NullString
		format, sourceType, created string
	)
	err := row.Scan(&doc.ID, &doc.Title, &content, &format, &sourceType, &created, &channel, &videoID)
	if err != nil {
		return nil, err
	}
	doc.SourceType = core.SourceType(sourceType)
	doc.ChannelName = channel.String
	doc.VideoID = videoID.String
	doc.Content = content.String
	if format == FormatHTML {
		doc.Content = textproc.StripHTML(doc.Content)
	}
	doc.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
