package table

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy/internal/btree"
	"github.com/RichardKnop/sqlitoy/internal/node"
	"github.com/RichardKnop/sqlitoy/internal/pager"
	"github.com/RichardKnop/sqlitoy/internal/record"
)

var (
	// ErrTableFull wraps pager.ErrResourceExhausted, the page budget
	// cannot fit another split.
	ErrTableFull = errors.New("table full")
	// ErrDuplicateKey is returned when inserting a key already present.
	ErrDuplicateKey = btree.ErrDuplicateKey
	// ErrCorruptFile is returned when the file does not hold pages that
	// fit the configured page size.
	ErrCorruptFile = pager.ErrCorruptFile
)

type Options struct {
	PageSize uint32
	MaxPages uint32
	// Optional lower node capacities, zero keeps the capacity
	// derived from page and record size
	LeafMaxCells    uint32
	InternalMaxKeys uint32
}

func DefaultOptions() Options {
	return Options{
		PageSize: pager.DefaultPageSize,
		MaxPages: pager.DefaultMaxPages,
	}
}

// Table stores records of type R in a B+ tree keyed by uint32.
type Table[R any] struct {
	Path   string
	codec  record.Codec[R]
	pager  *pager.Pager
	tree   *btree.Tree
	logger *zap.Logger
}

// Open opens the database file at path, creating it when it does not exist.
// A new file starts with an empty root leaf.
func Open[R any](ctx context.Context, logger *zap.Logger, path string, codec record.Codec[R], opts Options) (*Table[R], error) {
	aLayout, err := node.NewLayout(opts.PageSize, codec.Size())
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	aLayout, err = aLayout.WithMaxCells(opts.LeafMaxCells, opts.InternalMaxKeys)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	dbFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", &pager.IOError{Op: "open", Err: err})
	}

	aPager, err := pager.New(logger, dbFile, opts.PageSize, opts.MaxPages)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open table: %w", err), dbFile.Close())
	}

	aTree, err := btree.New(ctx, logger, aPager, aLayout)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open table: %w", err), dbFile.Close())
	}

	logger.Sugar().With(
		"path", path,
		"total_pages", int(aPager.TotalPages()),
		"leaf_max_cells", int(aLayout.LeafMaxCells),
		"internal_max_keys", int(aLayout.InternalMaxKeys),
	).Info("opened table")

	return &Table[R]{
		Path:   path,
		codec:  codec,
		pager:  aPager,
		tree:   aTree,
		logger: logger,
	}, nil
}

func (t *Table[R]) Tree() *btree.Tree {
	return t.tree
}

// Insert stores a record under the key. It returns ErrDuplicateKey when the
// key exists and ErrTableFull when the page budget is exhausted, the table
// is unchanged in both cases. Any other error comes from the file and is fatal.
func (t *Table[R]) Insert(ctx context.Context, key uint32, aRecord R) error {
	value := make([]byte, t.codec.Size())
	if err := t.codec.Marshal(aRecord, value); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	err := t.tree.Insert(ctx, key, value)
	if errors.Is(err, pager.ErrResourceExhausted) {
		return fmt.Errorf("%w: %w", ErrTableFull, err)
	}
	return err
}

// Find looks up a single record by key.
func (t *Table[R]) Find(ctx context.Context, key uint32) (R, bool, error) {
	var zero R

	aCursor, err := t.tree.Find(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("find: %w", err)
	}

	foundKey, err := aCursor.Key(ctx)
	if errors.Is(err, node.ErrIndexOutOfRange) {
		// Insertion point past the last cell of a leaf
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("find: %w", err)
	}
	if foundKey != key {
		return zero, false, nil
	}

	value, err := aCursor.Value(ctx)
	if err != nil {
		return zero, false, fmt.Errorf("find: %w", err)
	}
	aRecord, err := t.codec.Unmarshal(value)
	if err != nil {
		return zero, false, fmt.Errorf("find: %w", err)
	}
	return aRecord, true, nil
}

// SelectAll returns an iterator over all records in ascending key order.
// Every call of the returned sequence starts a new scan. Iteration stops
// after the first error.
func (t *Table[R]) SelectAll(ctx context.Context) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		var zero R

		aCursor, err := t.tree.Start(ctx)
		if err != nil {
			yield(zero, fmt.Errorf("select: %w", err))
			return
		}

		for !aCursor.EndOfTable {
			value, err := aCursor.Value(ctx)
			if err != nil {
				yield(zero, fmt.Errorf("select: %w", err))
				return
			}
			aRecord, err := t.codec.Unmarshal(value)
			if err != nil {
				yield(zero, fmt.Errorf("select: %w", err))
				return
			}
			if !yield(aRecord, nil) {
				return
			}
			if err := aCursor.Advance(ctx); err != nil {
				yield(zero, fmt.Errorf("select: %w", err))
				return
			}
		}
	}
}

// Count returns the number of records, it scans all leaves.
func (t *Table[R]) Count(ctx context.Context) (int, error) {
	aCursor, err := t.tree.Start(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	count := 0
	for !aCursor.EndOfTable {
		count += 1
		if err := aCursor.Advance(ctx); err != nil {
			return 0, fmt.Errorf("count: %w", err)
		}
	}
	return count, nil
}

// Close flushes every page to the file and closes it.
func (t *Table[R]) Close(ctx context.Context) error {
	t.logger.Sugar().With(
		"path", t.Path,
		"total_pages", int(t.pager.TotalPages()),
	).Info("closing table")

	return t.pager.Close(ctx)
}
