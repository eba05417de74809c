package btree

import (
	"context"
	"errors"
	"fmt"

	"github.com/RichardKnop/sqlitoy/internal/node"
)

var errEndOfTable = errors.New("cursor is past the end of table")

// Cursor points at a single leaf cell. It is only valid until the next
// insert into the tree it was created from.
type Cursor struct {
	PageIdx    uint32
	CellIdx    uint32
	EndOfTable bool
	tree       *Tree
}

// Start returns a cursor at the first cell of the leftmost leaf.
func (t *Tree) Start(ctx context.Context) (*Cursor, error) {
	pageIdx := t.RootPageIdx
	aNode, err := t.node(ctx, pageIdx)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	for aNode.IsInternal() {
		pageIdx, err = aNode.Child(0)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		aNode, err = t.node(ctx, pageIdx)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
	}

	aCursor := &Cursor{
		PageIdx:    pageIdx,
		CellIdx:    0,
		EndOfTable: aNode.NumCells() == 0,
		tree:       t,
	}
	if aCursor.EndOfTable && aNode.NextLeaf() != node.NoNextLeaf {
		// Leftmost leaf is empty but more leaves follow
		aCursor.EndOfTable = false
		if err := aCursor.Advance(ctx); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
	}
	return aCursor, nil
}

// Find returns a cursor for a key. If the key does not exist the cursor
// points at the cell where it should be inserted.
func (t *Tree) Find(ctx context.Context, key uint32) (*Cursor, error) {
	pageIdx := t.RootPageIdx
	aNode, err := t.node(ctx, pageIdx)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	for aNode.IsInternal() {
		pageIdx, err = aNode.Child(aNode.IndexOfChild(key))
		if err != nil {
			return nil, fmt.Errorf("find: %w", err)
		}
		aNode, err = t.node(ctx, pageIdx)
		if err != nil {
			return nil, fmt.Errorf("find: %w", err)
		}
	}

	return &Cursor{
		PageIdx: pageIdx,
		CellIdx: aNode.SearchLeaf(key),
		tree:    t,
	}, nil
}

// Advance moves the cursor to the next cell, following the leaf chain
// when the current leaf is exhausted. Empty leaves are skipped.
func (c *Cursor) Advance(ctx context.Context) error {
	if c.EndOfTable {
		return nil
	}

	aNode, err := c.tree.node(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("advance: %w", err)
	}

	c.CellIdx += 1
	for c.CellIdx >= aNode.NumCells() {
		nextLeaf := aNode.NextLeaf()
		if nextLeaf == node.NoNextLeaf {
			c.EndOfTable = true
			return nil
		}
		aNode, err = c.tree.node(ctx, nextLeaf)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		c.PageIdx = nextLeaf
		c.CellIdx = 0
	}

	return nil
}

func (c *Cursor) leaf(ctx context.Context) (node.Node, error) {
	if c.EndOfTable {
		return node.Node{}, errEndOfTable
	}
	aNode, err := c.tree.node(ctx, c.PageIdx)
	if err != nil {
		return node.Node{}, err
	}
	if c.CellIdx >= aNode.NumCells() {
		return node.Node{}, fmt.Errorf("%w: cell %d, number of cells %d", node.ErrIndexOutOfRange, c.CellIdx, aNode.NumCells())
	}
	return aNode, nil
}

func (c *Cursor) Key(ctx context.Context) (uint32, error) {
	aNode, err := c.leaf(ctx)
	if err != nil {
		return 0, fmt.Errorf("cursor key: %w", err)
	}
	return aNode.Key(c.CellIdx), nil
}

// Value returns the value slot of the current cell. The slice aliases the
// page so it can be used both to read and to overwrite a record.
func (c *Cursor) Value(ctx context.Context) ([]byte, error) {
	aNode, err := c.leaf(ctx)
	if err != nil {
		return nil, fmt.Errorf("cursor value: %w", err)
	}
	return aNode.Value(c.CellIdx), nil
}
