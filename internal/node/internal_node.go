package node

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("index out of range")

func (n Node) NumKeys() uint32 {
	return n.uint32At(numKeysOffset)
}

func (n Node) SetNumKeys(keys uint32) {
	n.putUint32At(numKeysOffset, keys)
}

func (n Node) RightChild() uint32 {
	return n.uint32At(rightChildOffset)
}

func (n Node) SetRightChild(pageIdx uint32) {
	n.putUint32At(rightChildOffset, pageIdx)
}

func (n Node) internalCellOffset(cellIdx uint32) uint32 {
	if cellIdx >= n.layout.InternalMaxKeys {
		panic(fmt.Sprintf("internal cell index %d out of range, max keys %d", cellIdx, n.layout.InternalMaxKeys))
	}
	return InternalHeaderSize + cellIdx*InternalCellSize
}

// Child returns a page index of nth child of the node marked by its index
// (0 for the leftmost child, index equal to number of keys means the rightmost child).
func (n Node) Child(childIdx uint32) (uint32, error) {
	keysNum := n.NumKeys()
	if childIdx > keysNum {
		return 0, fmt.Errorf("%w: child index %d, number of keys %d", ErrIndexOutOfRange, childIdx, keysNum)
	}

	if childIdx == keysNum {
		return n.RightChild(), nil
	}

	return n.uint32At(n.internalCellOffset(childIdx)), nil
}

func (n Node) SetChild(childIdx, pageIdx uint32) error {
	keysNum := n.NumKeys()
	if childIdx > keysNum {
		return fmt.Errorf("%w: child index %d, number of keys %d", ErrIndexOutOfRange, childIdx, keysNum)
	}

	if childIdx == keysNum {
		n.SetRightChild(pageIdx)
		return nil
	}

	n.putUint32At(n.internalCellOffset(childIdx), pageIdx)
	return nil
}

// SetInternalCell writes a child/separator pair without checking the number of keys,
// callers adjust the key count themselves.
func (n Node) SetInternalCell(cellIdx, childPageIdx, key uint32) {
	offset := n.internalCellOffset(cellIdx)
	n.putUint32At(offset, childPageIdx)
	n.putUint32At(offset+ChildSize, key)
}

// IndexOfChild returns the index of the child which should contain the given key.
// For example, if node has 2 keys, this could return 0 for the leftmost child,
// 1 for the middle child or 2 for the rightmost child.
// The returned value is not a page index!
func (n Node) IndexOfChild(key uint32) uint32 {
	var (
		minIdx = uint32(0)
		maxIdx = n.NumKeys()
	)
	for minIdx != maxIdx {
		idx := minIdx + (maxIdx-minIdx)/2
		if n.Key(idx) >= key {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}

	return minIdx
}

// IndexOfPage returns the child index pointing at the page.
func (n Node) IndexOfPage(pageIdx uint32) (uint32, error) {
	keysNum := n.NumKeys()
	for idx := range keysNum {
		if n.uint32At(n.internalCellOffset(idx)) == pageIdx {
			return idx, nil
		}
	}
	if n.RightChild() == pageIdx {
		return keysNum, nil
	}
	return 0, fmt.Errorf("%w: page %d is not a child", ErrIndexOutOfRange, pageIdx)
}

// Children returns page indexes of all children, the right child last.
func (n Node) Children() []uint32 {
	keysNum := n.NumKeys()
	children := make([]uint32, 0, keysNum+1)
	for idx := range keysNum {
		children = append(children, n.uint32At(n.internalCellOffset(idx)))
	}
	if n.RightChild() != InvalidPage {
		children = append(children, n.RightChild())
	}
	return children
}
