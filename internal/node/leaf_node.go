package node

import (
	"fmt"
)

func (n Node) NumCells() uint32 {
	return n.uint32At(numCellsOffset)
}

func (n Node) SetNumCells(cells uint32) {
	n.putUint32At(numCellsOffset, cells)
}

func (n Node) NextLeaf() uint32 {
	return n.uint32At(nextLeafOffset)
}

func (n Node) SetNextLeaf(pageIdx uint32) {
	n.putUint32At(nextLeafOffset, pageIdx)
}

// IsFull reports whether a leaf has no room for another cell.
func (n Node) IsFull() bool {
	if n.IsLeaf() {
		return n.NumCells() >= n.layout.LeafMaxCells
	}
	return n.NumKeys() >= n.layout.InternalMaxKeys
}

func (n Node) leafCellOffset(cellIdx uint32) uint32 {
	if cellIdx >= n.layout.LeafMaxCells {
		panic(fmt.Sprintf("leaf cell index %d out of range, max cells %d", cellIdx, n.layout.LeafMaxCells))
	}
	return LeafHeaderSize + cellIdx*n.layout.LeafCellSize()
}

// Cell returns the raw bytes of a leaf cell: key followed by value.
func (n Node) Cell(cellIdx uint32) []byte {
	offset := n.leafCellOffset(cellIdx)
	return n.buf[offset : offset+n.layout.LeafCellSize()]
}

func (n Node) Key(cellIdx uint32) uint32 {
	if n.IsInternal() {
		return n.uint32At(n.internalCellOffset(cellIdx) + ChildSize)
	}
	return n.uint32At(n.leafCellOffset(cellIdx))
}

func (n Node) SetKey(cellIdx, key uint32) {
	if n.IsInternal() {
		n.putUint32At(n.internalCellOffset(cellIdx)+ChildSize, key)
		return
	}
	n.putUint32At(n.leafCellOffset(cellIdx), key)
}

// Value returns the value slot of a leaf cell. The slice aliases the page,
// writing to it modifies the page in place.
func (n Node) Value(cellIdx uint32) []byte {
	offset := n.leafCellOffset(cellIdx) + KeySize
	return n.buf[offset : offset+n.layout.ValueSize]
}

// SetCell writes key and value into a leaf cell. A value shorter than
// the value size is zero padded.
func (n Node) SetCell(cellIdx, key uint32, value []byte) {
	n.SetKey(cellIdx, key)
	slot := n.Value(cellIdx)
	clear(slot[copy(slot, value):])
}

// SearchLeaf binary searches leaf cells and returns the index of the first
// cell with key greater than or equal to the given key. It returns the
// number of cells when all keys are smaller.
func (n Node) SearchLeaf(key uint32) uint32 {
	var (
		minIdx = uint32(0)
		maxIdx = n.NumCells()
	)
	for minIdx != maxIdx {
		idx := minIdx + (maxIdx-minIdx)/2
		keyAtIdx := n.Key(idx)
		if key == keyAtIdx {
			return idx
		}
		if key < keyAtIdx {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}
	return minIdx
}

// Keys returns keys of all cells in a leaf or all separators in an internal node.
func (n Node) Keys() []uint32 {
	var num uint32
	if n.IsLeaf() {
		num = n.NumCells()
	} else {
		num = n.NumKeys()
	}
	keys := make([]uint32, 0, num)
	for idx := range num {
		keys = append(keys, n.Key(idx))
	}
	return keys
}
