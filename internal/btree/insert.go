package btree

import (
	"context"
	"fmt"

	"github.com/RichardKnop/sqlitoy/internal/node"
	"github.com/RichardKnop/sqlitoy/internal/pager"
)

// Insert adds a key with its value. Existing keys are rejected with
// ErrDuplicateKey and an insert which would need more pages than the pager
// can still allocate fails with pager.ErrResourceExhausted. In both cases
// the tree is left untouched.
func (t *Tree) Insert(ctx context.Context, key uint32, value []byte) error {
	if uint32(len(value)) > t.layout.ValueSize {
		return fmt.Errorf("insert: %w: value is %d bytes, slot is %d bytes", node.ErrRecordTooLarge, len(value), t.layout.ValueSize)
	}

	aCursor, err := t.Find(ctx, key)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	aLeaf, err := t.node(ctx, aCursor.PageIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	if aCursor.CellIdx < aLeaf.NumCells() && aLeaf.Key(aCursor.CellIdx) == key {
		return fmt.Errorf("insert: %w: %d", ErrDuplicateKey, key)
	}

	if !aLeaf.IsFull() {
		leafInsert(aLeaf, aCursor.CellIdx, key, value)
		return nil
	}

	needed, err := t.pagesNeeded(ctx, aLeaf)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if !t.pager.CanAllocate(needed) {
		return fmt.Errorf("insert: %w: split needs %d more pages, %d pages used", pager.ErrResourceExhausted, needed, t.pager.TotalPages())
	}

	if err := t.leafSplitInsert(ctx, aCursor, aLeaf, key, value); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// pagesNeeded walks from a full leaf towards the root and counts new pages
// the insert will allocate: one per splitting node plus one for the old
// root content when the root splits.
func (t *Tree) pagesNeeded(ctx context.Context, aNode node.Node) (uint32, error) {
	var needed uint32
	for aNode.IsFull() {
		needed += 1
		if aNode.IsRoot() {
			needed += 1
			break
		}
		var err error
		aNode, err = t.node(ctx, aNode.Parent())
		if err != nil {
			return 0, err
		}
	}
	return needed, nil
}

func leafInsert(aLeaf node.Node, cellIdx, key uint32, value []byte) {
	numCells := aLeaf.NumCells()
	// Make room for the new cell
	for i := numCells; i > cellIdx; i-- {
		copy(aLeaf.Cell(i), aLeaf.Cell(i-1))
	}
	aLeaf.SetCell(cellIdx, key, value)
	aLeaf.SetNumCells(numCells + 1)
}

// leafSplitInsert creates a new leaf and moves the upper half of the cells
// there, the new cell goes to whichever half its position falls into.
// The new leaf becomes the right sibling in the leaf chain.
func (t *Tree) leafSplitInsert(ctx context.Context, aCursor *Cursor, aLeaf node.Node, key uint32, value []byte) error {
	newPageIdx, newLeaf, err := t.allocate(ctx, true)
	if err != nil {
		return fmt.Errorf("leaf split insert: %w", err)
	}

	t.logger.Sugar().With(
		"page_index", int(aCursor.PageIdx),
		"new_page_index", int(newPageIdx),
		"key", int(key),
	).Debug("leaf node split insert")

	newLeaf.SetParent(aLeaf.Parent())
	newLeaf.SetNextLeaf(aLeaf.NextLeaf())
	aLeaf.SetNextLeaf(newPageIdx)

	var (
		maxCells   = t.layout.LeafMaxCells
		leftCount  = t.layout.LeafLeftSplitCount()
		rightCount = t.layout.LeafRightSplitCount()
	)

	// All existing cells plus the new one are divided evenly between the old
	// (left) and new (right) leaf. Iterating from the top keeps source cells
	// intact until they are copied.
	for i := int(maxCells); i >= 0; i-- {
		var (
			idx         = uint32(i)
			destination = aLeaf
			destIdx     = idx
		)
		if idx >= leftCount {
			destination = newLeaf
			destIdx = idx - leftCount
		}

		switch {
		case idx == aCursor.CellIdx:
			destination.SetCell(destIdx, key, value)
		case idx > aCursor.CellIdx:
			copy(destination.Cell(destIdx), aLeaf.Cell(idx-1))
		default:
			copy(destination.Cell(destIdx), aLeaf.Cell(idx))
		}
	}

	// Zero cells which moved to the new leaf
	for i := leftCount; i < maxCells; i++ {
		clear(aLeaf.Cell(i))
	}

	aLeaf.SetNumCells(leftCount)
	newLeaf.SetNumCells(rightCount)

	if aLeaf.IsRoot() {
		_, err := t.createNewRoot(ctx, newPageIdx)
		return err
	}

	return t.insertChild(ctx, aLeaf.Parent(), aCursor.PageIdx, newPageIdx)
}

// createNewRoot handles splitting the root. Old root content is copied to
// a new page which becomes the left child, the page passed in is already
// the right child. The root page is reinitialized as an internal node with
// a single key. Returns the new left child.
func (t *Tree) createNewRoot(ctx context.Context, rightChildPageIdx uint32) (node.Node, error) {
	aRoot, err := t.node(ctx, t.RootPageIdx)
	if err != nil {
		return node.Node{}, fmt.Errorf("create new root: %w", err)
	}

	rightChild, err := t.node(ctx, rightChildPageIdx)
	if err != nil {
		return node.Node{}, fmt.Errorf("create new root: %w", err)
	}

	leftChildPageIdx, leftChild, err := t.allocate(ctx, true)
	if err != nil {
		return node.Node{}, fmt.Errorf("create new root: %w", err)
	}

	t.logger.Sugar().With(
		"left_child_index", int(leftChildPageIdx),
		"right_child_index", int(rightChildPageIdx),
	).Debug("create new root")

	// Copy all node contents to left child
	leftChild.CopyFrom(aRoot)
	leftChild.SetRoot(false)
	if leftChild.IsInternal() {
		// Update parent for all child pages
		for _, childPageIdx := range leftChild.Children() {
			aChild, err := t.node(ctx, childPageIdx)
			if err != nil {
				return node.Node{}, fmt.Errorf("create new root: %w", err)
			}
			aChild.SetParent(leftChildPageIdx)
		}
	}

	leftChildMaxKey, err := t.MaxKey(ctx, leftChild)
	if err != nil {
		return node.Node{}, fmt.Errorf("create new root: %w", err)
	}

	// Change root node to a new internal node
	aRoot.InitializeInternal()
	aRoot.SetRoot(true)
	aRoot.SetNumKeys(1)
	aRoot.SetInternalCell(0, leftChildPageIdx, leftChildMaxKey)
	aRoot.SetRightChild(rightChildPageIdx)

	// Set parent for both left and right child
	leftChild.SetParent(t.RootPageIdx)
	rightChild.SetParent(t.RootPageIdx)

	return leftChild, nil
}

// insertChild adds a new node to the parent right after the node it was
// split from and refreshes the separator of the split node.
func (t *Tree) insertChild(ctx context.Context, parentPageIdx, splitPageIdx, newPageIdx uint32) error {
	aParent, err := t.node(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	splitNode, err := t.node(ctx, splitPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	newNode, err := t.node(ctx, newPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	splitMaxKey, err := t.MaxKey(ctx, splitNode)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	newMaxKey, err := t.MaxKey(ctx, newNode)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	childIdx, err := aParent.IndexOfPage(splitPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	if aParent.IsFull() {
		return t.internalSplitInsert(ctx, parentPageIdx, childIdx, splitMaxKey, newPageIdx, newMaxKey)
	}

	keysNum := aParent.NumKeys()
	if childIdx == keysNum {
		// Split node was the right child, it becomes the last cell
		// and the new node takes over as the right child
		aParent.SetInternalCell(keysNum, splitPageIdx, splitMaxKey)
		aParent.SetRightChild(newPageIdx)
	} else {
		for i := keysNum; i > childIdx+1; i-- {
			childPageIdx, err := aParent.Child(i - 1)
			if err != nil {
				return fmt.Errorf("internal node insert: %w", err)
			}
			aParent.SetInternalCell(i, childPageIdx, aParent.Key(i-1))
		}
		aParent.SetKey(childIdx, splitMaxKey)
		aParent.SetInternalCell(childIdx+1, newPageIdx, newMaxKey)
	}
	aParent.SetNumKeys(keysNum + 1)
	newNode.SetParent(parentPageIdx)

	return nil
}

type internalEntry struct {
	child  uint32
	maxKey uint32
}

// internalSplitInsert splits a full internal node while inserting a new
// child right after the child on childIdx. Children are divided between the
// original page (left half) and a new page (right half), then the new page
// is inserted into the parent the same way, growing a new root if needed.
func (t *Tree) internalSplitInsert(ctx context.Context, pageIdx, childIdx, splitMaxKey, newChildPageIdx, newChildMaxKey uint32) error {
	aSplitNode, err := t.node(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	keysNum := aSplitNode.NumKeys()
	entries := make([]internalEntry, 0, keysNum+2)
	for i := uint32(0); i <= keysNum; i++ {
		childPageIdx, err := aSplitNode.Child(i)
		if err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}

		var maxKey uint32
		switch {
		case i == childIdx:
			maxKey = splitMaxKey
		case i < keysNum:
			maxKey = aSplitNode.Key(i)
		default:
			aChild, err := t.node(ctx, childPageIdx)
			if err != nil {
				return fmt.Errorf("internal node split insert: %w", err)
			}
			maxKey, err = t.MaxKey(ctx, aChild)
			if err != nil {
				return fmt.Errorf("internal node split insert: %w", err)
			}
		}

		entries = append(entries, internalEntry{child: childPageIdx, maxKey: maxKey})
		if i == childIdx {
			entries = append(entries, internalEntry{child: newChildPageIdx, maxKey: newChildMaxKey})
		}
	}

	newPageIdx, aNewNode, err := t.allocate(ctx, false)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	aNewNode.SetParent(aSplitNode.Parent())

	var (
		leftCount = (len(entries) + 1) / 2
		left      = entries[:leftCount]
		right     = entries[leftCount:]
	)

	t.logger.Sugar().With(
		"page_index", int(pageIdx),
		"new_page_index", int(newPageIdx),
		"left_children", len(left),
		"right_children", len(right),
	).Debug("internal node split insert")

	if err := t.fillInternal(ctx, aSplitNode, pageIdx, left); err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	if err := t.fillInternal(ctx, aNewNode, newPageIdx, right); err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	if aSplitNode.IsRoot() {
		if _, err := t.createNewRoot(ctx, newPageIdx); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
		return nil
	}

	return t.insertChild(ctx, aSplitNode.Parent(), pageIdx, newPageIdx)
}

// fillInternal rewrites the cells of an internal node from a list of
// children, the last one becoming the right child. Every child gets its
// parent pointer updated.
func (t *Tree) fillInternal(ctx context.Context, aNode node.Node, pageIdx uint32, entries []internalEntry) error {
	keysNum := uint32(len(entries) - 1)
	for i := range keysNum {
		aNode.SetInternalCell(i, entries[i].child, entries[i].maxKey)
	}
	for i := keysNum; i < t.layout.InternalMaxKeys; i++ {
		aNode.SetInternalCell(i, 0, 0)
	}
	aNode.SetNumKeys(keysNum)
	aNode.SetRightChild(entries[keysNum].child)

	for _, anEntry := range entries {
		aChild, err := t.node(ctx, anEntry.child)
		if err != nil {
			return err
		}
		aChild.SetParent(pageIdx)
	}
	return nil
}
