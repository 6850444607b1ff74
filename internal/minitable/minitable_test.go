package minitable

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/minitable/internal/pkg/logging"
)

//go:generate mockery --name=Pager --structname=MockPager --inpackage --case=snake --testonly

var (
	gen = newDataGen(uint64(time.Now().Unix()))

	testLogger *zap.Logger
)

func init() {
	var err error
	testLogger, err = logging.New(os.Getenv("LOG_LEVEL"))
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

func (g *dataGen) Row() Row {
	return Row{
		ID:       g.Uint32(),
		Username: truncate(g.Username(), UsernameSize),
		Email:    truncate(g.Email(), EmailSize),
	}
}

// Rows returns rows with unique IDs in random order.
func (g *dataGen) Rows(number int) []Row {
	idMap := map[uint32]struct{}{}
	rows := make([]Row, 0, number)
	for range number {
		aRow := g.Row()
		_, ok := idMap[aRow.ID]
		for ok {
			aRow = g.Row()
			_, ok = idMap[aRow.ID]
		}
		rows = append(rows, aRow)
		idMap[aRow.ID] = struct{}{}
	}
	return rows
}

func truncate(s string, size int) string {
	if len(s) > size {
		return s[:size]
	}
	return s
}

func newTestTable(t *testing.T, opts ...TableOption) (*Table, string) {
	path := filepath.Join(t.TempDir(), "testdb")
	aTable, err := Open(context.Background(), path, append([]TableOption{WithLogger(testLogger)}, opts...)...)
	require.NoError(t, err)
	return aTable, path
}

func newRootLeafPage(keys ...uint32) *Page {
	aLeaf := NewLeafNode()
	aLeaf.Header.IsRoot = true
	for _, key := range keys {
		aLeaf.AppendCells(Cell{Key: key})
	}
	return &Page{Index: 0, LeafNode: aLeaf}
}

// assertValidTree walks the whole tree checking ordering, separator keys,
// parent pointers and the chain of leaf sibling pointers.
func assertValidTree(t *testing.T, aTable *Table) {
	ctx := context.Background()

	var (
		leavesInOrder []PageIndex
		allKeys       []uint32
	)

	var walk func(pageIdx PageIndex, parentIdx PageIndex, isRoot bool, minKey, maxKey int64) int
	walk = func(pageIdx PageIndex, parentIdx PageIndex, isRoot bool, minKey, maxKey int64) int {
		aPage, err := aTable.pager.GetPage(ctx, pageIdx)
		require.NoError(t, err)
		require.Equal(t, isRoot, aPage.IsRoot(), "page %d root flag", pageIdx)
		if !isRoot {
			require.Equal(t, parentIdx, aPage.Parent(), "page %d parent", pageIdx)
		}

		if aPage.LeafNode != nil {
			leavesInOrder = append(leavesInOrder, pageIdx)
			for _, key := range aPage.LeafNode.Keys() {
				require.Greater(t, int64(key), minKey, "page %d key %d", pageIdx, key)
				require.LessOrEqual(t, int64(key), maxKey, "page %d key %d", pageIdx, key)
				if len(allKeys) > 0 {
					require.Greater(t, key, allKeys[len(allKeys)-1])
				}
				allKeys = append(allKeys, key)
			}
			return 1
		}

		aNode := aPage.InternalNode
		require.LessOrEqual(t, aNode.Header.KeysNum, aTable.maxICells)
		depth := -1
		lower := minKey
		for idx := range aNode.Header.KeysNum {
			aCell := aNode.ICells[idx]
			childDepth := walk(aCell.Child, pageIdx, false, lower, int64(aCell.Key))

			aChildPage, err := aTable.pager.GetPage(ctx, aCell.Child)
			require.NoError(t, err)
			childMax, err := aTable.GetMaxKey(ctx, aChildPage)
			require.NoError(t, err)
			require.Equal(t, childMax, aCell.Key, "separator %d of page %d", idx, pageIdx)

			if depth >= 0 {
				require.Equal(t, depth, childDepth, "all leaves at the same depth")
			}
			depth = childDepth
			lower = int64(aCell.Key)
		}
		childDepth := walk(aNode.Header.RightChild, pageIdx, false, lower, maxKey)
		if depth >= 0 {
			require.Equal(t, depth, childDepth, "all leaves at the same depth")
		}
		return childDepth + 1
	}
	walk(aTable.RootPageIdx, 0, true, -1, 1<<32)

	// Leaves in tree order must match the sibling chain
	var chain []PageIndex
	for pageIdx := leavesInOrder[0]; ; {
		chain = append(chain, pageIdx)
		aPage, err := aTable.pager.GetPage(ctx, pageIdx)
		require.NoError(t, err)
		if aPage.LeafNode.Header.NextLeaf == 0 {
			break
		}
		pageIdx = aPage.LeafNode.Header.NextLeaf
	}
	assert.Equal(t, leavesInOrder, chain)
}
