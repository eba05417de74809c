package node

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrCorruptNode = errors.New("corrupt node")

type Type uint8

// On-disk node type tags. TypeRoot is kept for format compatibility,
// root-ness is tracked by the separate is root flag.
const (
	TypeRoot Type = iota
	TypeInternal
	TypeLeaf
)

func (t Type) String() string {
	switch t {
	case TypeRoot:
		return "root"
	case TypeInternal:
		return "internal"
	case TypeLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

const (
	// NoNextLeaf marks the last leaf in the chain. Page 0 is always the root
	// and the root can never be the right sibling of another leaf.
	NoNextLeaf uint32 = 0
	// InvalidPage is the right child of an internal node that has no children yet.
	InvalidPage uint32 = math.MaxUint32
)

// Node is a typed view over a single page buffer. It never copies the page,
// all setters write straight into the underlying bytes.
type Node struct {
	buf    []byte
	layout Layout
}

func New(buf []byte, layout Layout) Node {
	if uint32(len(buf)) != layout.PageSize {
		panic(fmt.Sprintf("node buffer is %d bytes, layout page size is %d", len(buf), layout.PageSize))
	}
	return Node{buf: buf, layout: layout}
}

func (n Node) Bytes() []byte {
	return n.buf
}

func (n Node) Layout() Layout {
	return n.layout
}

func (n Node) Type() Type {
	return Type(n.buf[typeOffset])
}

func (n Node) SetType(t Type) {
	n.buf[typeOffset] = byte(t)
}

func (n Node) IsLeaf() bool {
	return n.Type() == TypeLeaf
}

func (n Node) IsInternal() bool {
	return n.Type() == TypeInternal
}

func (n Node) IsRoot() bool {
	return n.buf[isRootOffset] == 1
}

func (n Node) SetRoot(isRoot bool) {
	if isRoot {
		n.buf[isRootOffset] = 1
	} else {
		n.buf[isRootOffset] = 0
	}
}

func (n Node) Parent() uint32 {
	return n.uint32At(parentOffset)
}

func (n Node) SetParent(pageIdx uint32) {
	n.putUint32At(parentOffset, pageIdx)
}

// CopyFrom overwrites the whole page with the contents of another node.
func (n Node) CopyFrom(other Node) {
	copy(n.buf, other.buf)
}

// InitializeLeaf resets the page to an empty, non root leaf.
func (n Node) InitializeLeaf() {
	clear(n.buf)
	n.SetType(TypeLeaf)
	n.SetNextLeaf(NoNextLeaf)
}

// InitializeInternal resets the page to an empty, non root internal node.
func (n Node) InitializeInternal() {
	clear(n.buf)
	n.SetType(TypeInternal)
	n.SetRightChild(InvalidPage)
}

// Validate checks the header read from disk against the layout, a page
// written with a larger page size reports more cells than fit here.
func (n Node) Validate() error {
	switch n.Type() {
	case TypeLeaf:
		if n.NumCells() > n.layout.LeafMaxCells {
			return fmt.Errorf("%w: leaf has %d cells, max cells %d", ErrCorruptNode, n.NumCells(), n.layout.LeafMaxCells)
		}
	case TypeInternal:
		if n.NumKeys() > n.layout.InternalMaxKeys {
			return fmt.Errorf("%w: internal node has %d keys, max keys %d", ErrCorruptNode, n.NumKeys(), n.layout.InternalMaxKeys)
		}
	default:
		return fmt.Errorf("%w: node type %s", ErrCorruptNode, n.Type())
	}
	return nil
}

func (n Node) uint32At(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(n.buf[offset : offset+4])
}

func (n Node) putUint32At(offset, value uint32) {
	binary.LittleEndian.PutUint32(n.buf[offset:offset+4], value)
}
