package btree

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/RichardKnop/sqlitoy/internal/node"
)

// PrintTree writes an indented dump of the tree, internal nodes list their
// children interleaved with separator keys.
func (t *Tree) PrintTree(ctx context.Context, w io.Writer) error {
	return t.printNode(ctx, w, t.RootPageIdx, 0)
}

func (t *Tree) printNode(ctx context.Context, w io.Writer, pageIdx uint32, level int) error {
	aNode, err := t.node(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("print tree: %w", err)
	}

	indent := strings.Repeat("  ", level)
	if aNode.IsLeaf() {
		fmt.Fprintf(w, "%s- leaf (size %d)\n", indent, aNode.NumCells())
		for _, key := range aNode.Keys() {
			fmt.Fprintf(w, "%s  - %d\n", indent, key)
		}
		return nil
	}

	fmt.Fprintf(w, "%s- internal (size %d)\n", indent, aNode.NumKeys())
	for i := range aNode.NumKeys() {
		childPageIdx, err := aNode.Child(i)
		if err != nil {
			return fmt.Errorf("print tree: %w", err)
		}
		if err := t.printNode(ctx, w, childPageIdx, level+1); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  - key %d\n", indent, aNode.Key(i))
	}
	if aNode.RightChild() == node.InvalidPage {
		return nil
	}
	return t.printNode(ctx, w, aNode.RightChild(), level+1)
}

// PrintConstants writes the on-disk layout constants.
func (t *Tree) PrintConstants(w io.Writer) {
	fmt.Fprintf(w, "ROW_SIZE: %d\n", t.layout.ValueSize)
	fmt.Fprintf(w, "COMMON_NODE_HEADER_SIZE: %d\n", node.CommonHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_HEADER_SIZE: %d\n", node.LeafHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_CELL_SIZE: %d\n", t.layout.LeafCellSize())
	fmt.Fprintf(w, "LEAF_NODE_SPACE_FOR_CELLS: %d\n", t.layout.LeafSpaceForCells())
	fmt.Fprintf(w, "LEAF_NODE_MAX_CELLS: %d\n", t.layout.LeafMaxCells)
	fmt.Fprintf(w, "INTERNAL_NODE_HEADER_SIZE: %d\n", node.InternalHeaderSize)
	fmt.Fprintf(w, "INTERNAL_NODE_MAX_KEYS: %d\n", t.layout.InternalMaxKeys)
}
