package node

import (
	"errors"
	"fmt"
)

const (
	PageSize = 4096 // 4 kilobytes

	KeySize   = 4
	ChildSize = 4

	// Common header: node type (1), is root flag (1), parent page index (4)
	CommonHeaderSize = 6
	// Leaf header: common header, number of cells (4), next leaf page index (4)
	LeafHeaderSize = CommonHeaderSize + 8
	// Internal header: common header, number of keys (4), right child page index (4)
	InternalHeaderSize = CommonHeaderSize + 8
	InternalCellSize   = ChildSize + KeySize

	minInternalKeys = 2
)

const (
	typeOffset       = 0
	isRootOffset     = 1
	parentOffset     = 2
	numCellsOffset   = CommonHeaderSize
	nextLeafOffset   = numCellsOffset + 4
	numKeysOffset    = CommonHeaderSize
	rightChildOffset = numKeysOffset + 4
)

var (
	ErrRecordTooLarge = errors.New("record too large for page")
	ErrInvalidLayout  = errors.New("invalid node layout")
)

// Layout describes how leaf and internal nodes are packed into a page
// for a given page size and a fixed record (value) size.
type Layout struct {
	PageSize        uint32
	ValueSize       uint32
	LeafMaxCells    uint32
	InternalMaxKeys uint32
}

func NewLayout(pageSize, valueSize uint32) (Layout, error) {
	if pageSize <= LeafHeaderSize || pageSize <= InternalHeaderSize {
		return Layout{}, fmt.Errorf("%w: page size %d too small", ErrInvalidLayout, pageSize)
	}

	aLayout := Layout{
		PageSize:        pageSize,
		ValueSize:       valueSize,
		LeafMaxCells:    (pageSize - LeafHeaderSize) / (KeySize + valueSize),
		InternalMaxKeys: (pageSize - InternalHeaderSize) / InternalCellSize,
	}
	if aLayout.LeafMaxCells < 1 {
		return Layout{}, fmt.Errorf("%w: value size %d, page size %d", ErrRecordTooLarge, valueSize, pageSize)
	}
	if aLayout.InternalMaxKeys < minInternalKeys {
		return Layout{}, fmt.Errorf("%w: page size %d fits only %d internal keys", ErrInvalidLayout, pageSize, aLayout.InternalMaxKeys)
	}

	return aLayout, nil
}

// WithMaxCells returns a copy of the layout with lowered node capacities.
// Zero keeps the current capacity. Small capacities make splits easy to
// trigger without filling whole pages.
func (l Layout) WithMaxCells(leafMaxCells, internalMaxKeys uint32) (Layout, error) {
	if leafMaxCells > 0 {
		if leafMaxCells > l.LeafMaxCells {
			return Layout{}, fmt.Errorf("%w: %d leaf cells do not fit, maximum is %d", ErrInvalidLayout, leafMaxCells, l.LeafMaxCells)
		}
		l.LeafMaxCells = leafMaxCells
	}
	if internalMaxKeys > 0 {
		if internalMaxKeys > l.InternalMaxKeys {
			return Layout{}, fmt.Errorf("%w: %d internal keys do not fit, maximum is %d", ErrInvalidLayout, internalMaxKeys, l.InternalMaxKeys)
		}
		if internalMaxKeys < minInternalKeys {
			return Layout{}, fmt.Errorf("%w: internal node needs at least %d keys", ErrInvalidLayout, minInternalKeys)
		}
		l.InternalMaxKeys = internalMaxKeys
	}
	return l, nil
}

func (l Layout) LeafCellSize() uint32 {
	return KeySize + l.ValueSize
}

func (l Layout) LeafSpaceForCells() uint32 {
	return l.PageSize - LeafHeaderSize
}

// LeafRightSplitCount is the number of cells moved to the new right sibling
// when a full leaf receives one more cell.
func (l Layout) LeafRightSplitCount() uint32 {
	return (l.LeafMaxCells + 1) / 2
}

// LeafLeftSplitCount is the number of cells kept in the original leaf, ceil((max+1)/2).
func (l Layout) LeafLeftSplitCount() uint32 {
	return l.LeafMaxCells + 1 - l.LeafRightSplitCount()
}
