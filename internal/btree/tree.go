package btree

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy/internal/node"
	"github.com/RichardKnop/sqlitoy/internal/pager"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrCorruptRoot  = fmt.Errorf("%w: root page is not a valid node", pager.ErrCorruptFile)
	errEmptyNode    = errors.New("node has no keys")
)

type Pager interface {
	GetPage(context.Context, uint32) ([]byte, error)
	TotalPages() uint32
	CanAllocate(uint32) bool
}

// Tree is a B+ tree stored in pager pages. The root always lives on
// RootPageIdx, the tree grows in height by moving the old root content
// into a new page.
type Tree struct {
	RootPageIdx uint32
	pager       Pager
	layout      node.Layout
	logger      *zap.Logger
}

// New returns a tree over the pager. An empty pager gets an empty leaf root,
// otherwise the existing root page is validated.
func New(ctx context.Context, logger *zap.Logger, pager Pager, layout node.Layout) (*Tree, error) {
	aTree := &Tree{
		RootPageIdx: 0,
		pager:       pager,
		layout:      layout,
		logger:      logger,
	}

	isNew := pager.TotalPages() == 0
	aRoot, err := aTree.load(ctx, aTree.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("new tree: %w", err)
	}

	if isNew {
		aRoot.InitializeLeaf()
		aRoot.SetRoot(true)
		logger.Debug("initialized empty root leaf")
		return aTree, nil
	}

	if !aRoot.IsLeaf() && !aRoot.IsInternal() {
		return nil, fmt.Errorf("%w: node type %s", ErrCorruptRoot, aRoot.Type())
	}
	if !aRoot.IsRoot() {
		return nil, fmt.Errorf("%w: root flag not set", ErrCorruptRoot)
	}
	if err := aRoot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRoot, err)
	}

	return aTree, nil
}

func (t *Tree) Layout() node.Layout {
	return t.layout
}

// node loads a page that must already hold a node fitting the layout.
func (t *Tree) node(ctx context.Context, pageIdx uint32) (node.Node, error) {
	aNode, err := t.load(ctx, pageIdx)
	if err != nil {
		return node.Node{}, err
	}
	if err := aNode.Validate(); err != nil {
		return node.Node{}, fmt.Errorf("%w: page %d: %w", pager.ErrCorruptFile, pageIdx, err)
	}
	return aNode, nil
}

func (t *Tree) load(ctx context.Context, pageIdx uint32) (node.Node, error) {
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return node.Node{}, err
	}
	return node.New(aPage, t.layout), nil
}

// allocate returns the next unused page initialized as an empty leaf
// or internal node.
func (t *Tree) allocate(ctx context.Context, leaf bool) (uint32, node.Node, error) {
	pageIdx := t.pager.TotalPages()
	aNode, err := t.load(ctx, pageIdx)
	if err != nil {
		return 0, node.Node{}, err
	}
	if leaf {
		aNode.InitializeLeaf()
	} else {
		aNode.InitializeInternal()
	}
	return pageIdx, aNode, nil
}

// MaxKey returns the largest key in the subtree rooted at the node.
// For internal nodes this descends into the right child, the separators
// never contain the largest key of the subtree.
func (t *Tree) MaxKey(ctx context.Context, aNode node.Node) (uint32, error) {
	for !aNode.IsLeaf() {
		rightChild := aNode.RightChild()
		if rightChild == node.InvalidPage {
			return 0, fmt.Errorf("max key: %w", errEmptyNode)
		}
		var err error
		aNode, err = t.node(ctx, rightChild)
		if err != nil {
			return 0, fmt.Errorf("max key: %w", err)
		}
	}

	if aNode.NumCells() == 0 {
		return 0, fmt.Errorf("max key: %w", errEmptyNode)
	}
	return aNode.Key(aNode.NumCells() - 1), nil
}

// Height returns the number of levels, a single leaf root has height 1.
func (t *Tree) Height(ctx context.Context) (int, error) {
	aNode, err := t.node(ctx, t.RootPageIdx)
	if err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}
	height := 1
	for aNode.IsInternal() {
		childPageIdx, err := aNode.Child(0)
		if err != nil {
			return 0, fmt.Errorf("height: %w", err)
		}
		aNode, err = t.node(ctx, childPageIdx)
		if err != nil {
			return 0, fmt.Errorf("height: %w", err)
		}
		height += 1
	}
	return height, nil
}

type callback func(pageIdx uint32, aNode node.Node) error

// BFS visits every node level by level starting from the root.
func (t *Tree) BFS(ctx context.Context, f callback) error {
	queue := []uint32{t.RootPageIdx}

	for len(queue) > 0 {
		pageIdx := queue[0]
		queue = queue[1:]

		aNode, err := t.node(ctx, pageIdx)
		if err != nil {
			return err
		}
		if err := f(pageIdx, aNode); err != nil {
			return err
		}

		if aNode.IsInternal() {
			queue = append(queue, aNode.Children()...)
		}
	}

	return nil
}
