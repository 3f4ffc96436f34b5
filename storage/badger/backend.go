package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return errClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithTransaction executes fn inside a read-write transaction and commits
// it when fn succeeds.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *badger.Txn) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// scanPrefix calls fn for every key/value under prefix in a read-only
// transaction. It checks ctx every scanCheckInterval items.
func (b *Backend) scanPrefix(ctx context.Context, prefix []byte, fn func(key, val []byte) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		count := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
			if count%scanCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			item := iter.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// deletePrefix removes every key under prefix in a single transaction.
func (b *Backend) deletePrefix(prefix []byte) (int, error) {
	var keys [][]byte
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	err = b.WithTx(func(tx *badger.Txn) error {
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
