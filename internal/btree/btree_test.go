package btree

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy/internal/node"
	"github.com/RichardKnop/sqlitoy/internal/pager"
	"github.com/RichardKnop/sqlitoy/internal/pkg/logging"
)

//go:generate mockery --name=Pager --structname=MockPager --inpackage --case=snake --testonly

var (
	gen        = newDataGen(uint64(time.Now().Unix()))
	testLogger *zap.Logger
)

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

// Keys returns n distinct keys in random order.
func (g *dataGen) Keys(n int) []uint32 {
	keys := make([]uint32, 0, n)
	for i := range n {
		keys = append(keys, uint32(i+1)*3)
	}
	g.ShuffleAnySlice(keys)
	return keys
}

// memPager keeps pages in memory only, it behaves like pager.Pager
// without a backing file.
type memPager struct {
	pageSize uint32
	maxPages uint32
	pages    [][]byte
}

func newMemPager(pageSize, maxPages uint32) *memPager {
	return &memPager{
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

func (p *memPager) GetPage(ctx context.Context, pageIdx uint32) ([]byte, error) {
	if pageIdx >= p.maxPages {
		return nil, pager.ErrResourceExhausted
	}
	for len(p.pages) <= int(pageIdx) {
		p.pages = append(p.pages, make([]byte, p.pageSize))
	}
	return p.pages[pageIdx], nil
}

func (p *memPager) TotalPages() uint32 {
	return uint32(len(p.pages))
}

func (p *memPager) CanAllocate(n uint32) bool {
	return p.TotalPages()+n <= p.maxPages
}

func (p *memPager) snapshot() [][]byte {
	pages := make([][]byte, 0, len(p.pages))
	for _, aPage := range p.pages {
		pages = append(pages, append([]byte(nil), aPage...))
	}
	return pages
}

const testValueSize = 4

// newSmallLayout returns a layout with tiny nodes so splits happen early.
func newSmallLayout(t *testing.T, leafMaxCells, internalMaxKeys uint32) node.Layout {
	aLayout, err := node.NewLayout(node.PageSize, testValueSize)
	require.NoError(t, err)
	aLayout, err = aLayout.WithMaxCells(leafMaxCells, internalMaxKeys)
	require.NoError(t, err)
	return aLayout
}

func newTestTree(t *testing.T, aLayout node.Layout, maxPages uint32) (*Tree, *memPager) {
	aPager := newMemPager(aLayout.PageSize, maxPages)
	aTree, err := New(context.Background(), testLogger, aPager, aLayout)
	require.NoError(t, err)
	return aTree, aPager
}

func keyValue(key uint32) []byte {
	value := make([]byte, testValueSize)
	binary.LittleEndian.PutUint32(value, key)
	return value
}

func insertKeys(t *testing.T, aTree *Tree, keys ...uint32) {
	for _, key := range keys {
		require.NoError(t, aTree.Insert(context.Background(), key, keyValue(key)), "insert %d", key)
	}
}

// scanKeys walks the tree with a cursor and checks each value belongs to its key.
func scanKeys(t *testing.T, aTree *Tree) []uint32 {
	ctx := context.Background()

	aCursor, err := aTree.Start(ctx)
	require.NoError(t, err)

	keys := []uint32{}
	for !aCursor.EndOfTable {
		key, err := aCursor.Key(ctx)
		require.NoError(t, err)
		value, err := aCursor.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, keyValue(key), value[:testValueSize])

		keys = append(keys, key)
		require.NoError(t, aCursor.Advance(ctx))
	}
	return keys
}

// checkTree verifies structural invariants of the whole tree and returns
// all keys in order:
// - only the root page has the root flag
// - parent pointers name the page holding the child
// - separators equal the max key of their child subtree
// - keys are strictly increasing and within separator bounds
// - all leaves are on the same level and chained in key order
func checkTree(t *testing.T, aTree *Tree) []uint32 {
	t.Helper()

	var (
		ctx       = context.Background()
		leaves    []uint32
		keys      = []uint32{}
		leafDepth = -1
	)

	var walk func(pageIdx, parentIdx uint32, depth int, low int64, high int64)
	walk = func(pageIdx, parentIdx uint32, depth int, low int64, high int64) {
		aNode, err := aTree.node(ctx, pageIdx)
		require.NoError(t, err)

		if pageIdx == aTree.RootPageIdx {
			require.True(t, aNode.IsRoot(), "page %d", pageIdx)
		} else {
			require.False(t, aNode.IsRoot(), "page %d", pageIdx)
			require.Equal(t, parentIdx, aNode.Parent(), "parent of page %d", pageIdx)
		}

		if aNode.IsLeaf() {
			if leafDepth == -1 {
				leafDepth = depth
			}
			require.Equal(t, leafDepth, depth, "leaf %d depth", pageIdx)
			leaves = append(leaves, pageIdx)

			for _, key := range aNode.Keys() {
				require.Greater(t, int64(key), low, "leaf %d", pageIdx)
				require.LessOrEqual(t, int64(key), high, "leaf %d", pageIdx)
				low = int64(key)
				keys = append(keys, key)
			}
			return
		}

		require.True(t, aNode.IsInternal(), "page %d", pageIdx)
		require.Greater(t, aNode.NumKeys(), uint32(0), "page %d", pageIdx)
		for i := uint32(0); i <= aNode.NumKeys(); i++ {
			childPageIdx, err := aNode.Child(i)
			require.NoError(t, err)

			childHigh := high
			if i < aNode.NumKeys() {
				aChild, err := aTree.node(ctx, childPageIdx)
				require.NoError(t, err)
				childMaxKey, err := aTree.MaxKey(ctx, aChild)
				require.NoError(t, err)
				require.Equal(t, childMaxKey, aNode.Key(i), "separator %d of page %d", i, pageIdx)
				childHigh = int64(aNode.Key(i))
			}

			walk(childPageIdx, pageIdx, depth+1, low, childHigh)
			low = childHigh
		}
	}
	walk(aTree.RootPageIdx, 0, 0, -1, math.MaxUint32)

	// Follow the leaf chain from the leftmost leaf
	chain := []uint32{}
	for pageIdx := leaves[0]; ; {
		chain = append(chain, pageIdx)
		aNode, err := aTree.node(ctx, pageIdx)
		require.NoError(t, err)
		if aNode.NextLeaf() == node.NoNextLeaf {
			break
		}
		pageIdx = aNode.NextLeaf()
	}
	require.Equal(t, leaves, chain, "leaf chain")

	return keys
}

func rangeKeys(from, to uint32) []uint32 {
	keys := make([]uint32, 0, to-from+1)
	for key := from; key <= to; key++ {
		keys = append(keys, key)
	}
	return keys
}
