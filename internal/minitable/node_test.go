package minitable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 291, RowSize)
	assert.Equal(t, 6, CommonNodeHeaderSize)
	assert.Equal(t, 14, LeafNodeHeaderSize)
	assert.Equal(t, 295, LeafNodeCellSize)
	assert.Equal(t, 4082, LeafNodeSpaceForCells)
	assert.Equal(t, 13, LeafNodeMaxCells)
	assert.Equal(t, 7, LeafNodeRightSplitCount)
	assert.Equal(t, 7, LeafNodeLeftSplitCount)
	assert.Equal(t, 14, InternalNodeHeaderSize)
	assert.Equal(t, 8, InternalNodeCellSize)
	assert.Equal(t, 510, InternalNodeMaxCells)
}

func TestLeafNode_Marshal(t *testing.T) {
	t.Parallel()

	aNode := NewLeafNode()
	aNode.Header.IsRoot = true
	aNode.Header.Parent = 3
	aNode.Header.NextLeaf = 7
	for _, aRow := range gen.Rows(5) {
		aCell, err := newCell(aRow.ID, aRow)
		require.NoError(t, err)
		aNode.AppendCells(aCell)
	}

	buf := make([]byte, PageSize)
	data, err := aNode.Marshal(buf)
	require.NoError(t, err)
	assert.Len(t, data, LeafNodeHeaderSize+5*LeafNodeCellSize)

	assert.Equal(t, byte(NodeTypeLeaf), buf[NodeTypeOffset])
	assert.Equal(t, byte(1), buf[IsRootOffset])
	assert.Equal(t, uint32(3), unmarshalUint32(buf, ParentPointerOffset))
	assert.Equal(t, uint32(5), unmarshalUint32(buf, LeafNodeNumCellsOffset))
	assert.Equal(t, uint32(7), unmarshalUint32(buf, LeafNodeNextLeafOffset))
	assert.Equal(t, aNode.Cells[0].Key, unmarshalUint32(buf, LeafNodeHeaderSize))

	actual := NewLeafNode()
	_, err = actual.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, aNode, actual)
}

func TestLeafNode_Unmarshal_TooManyCells(t *testing.T) {
	t.Parallel()

	buf := make([]byte, PageSize)
	marshalUint32(buf, LeafNodeMaxCells+1, LeafNodeNumCellsOffset)

	_, err := NewLeafNode().Unmarshal(buf)
	require.Error(t, err)
}

func TestLeafNode_InsertCell(t *testing.T) {
	t.Parallel()

	aNode := NewLeafNode(Cell{Key: 1}, Cell{Key: 3}, Cell{Key: 5})

	require.NoError(t, aNode.InsertCell(1, Cell{Key: 2}))
	require.NoError(t, aNode.InsertCell(4, Cell{Key: 6}))
	require.NoError(t, aNode.InsertCell(0, Cell{Key: 0}))
	assert.Equal(t, []uint32{0, 1, 2, 3, 5, 6}, aNode.Keys())

	err := aNode.InsertCell(10, Cell{Key: 10})
	require.Error(t, err)

	for !aNode.IsFull() {
		aNode.AppendCells(Cell{Key: aNode.LastCell().Key + 1})
	}
	err = aNode.InsertCell(0, Cell{Key: 100})
	require.Error(t, err)
}

func TestInternalNode_Marshal(t *testing.T) {
	t.Parallel()

	aNode := NewInternalNode()
	aNode.Header.IsRoot = true
	aNode.Header.KeysNum = 2
	aNode.Header.RightChild = 4
	aNode.ICells[0] = ICell{Child: 1, Key: 10}
	aNode.ICells[1] = ICell{Child: 2, Key: 20}

	buf := make([]byte, PageSize)
	data, err := aNode.Marshal(buf)
	require.NoError(t, err)
	assert.Len(t, data, InternalNodeHeaderSize+2*InternalNodeCellSize)

	assert.Equal(t, byte(NodeTypeInternal), buf[NodeTypeOffset])
	assert.Equal(t, uint32(2), unmarshalUint32(buf, InternalNodeNumKeysOffset))
	assert.Equal(t, uint32(4), unmarshalUint32(buf, InternalNodeRightChildOffset))
	// child pointer comes before the key
	assert.Equal(t, uint32(1), unmarshalUint32(buf, InternalNodeHeaderSize))
	assert.Equal(t, uint32(10), unmarshalUint32(buf, InternalNodeHeaderSize+InternalNodeChildSize))

	aPage, err := unmarshalPage(9, buf)
	require.NoError(t, err)
	assert.Nil(t, aPage.LeafNode)
	assert.Equal(t, PageIndex(9), aPage.Index)
	assert.Equal(t, aNode, aPage.InternalNode)
}

func TestUnmarshalPage(t *testing.T) {
	t.Parallel()

	t.Run("zero page is an empty leaf", func(t *testing.T) {
		aPage, err := unmarshalPage(1, make([]byte, PageSize))
		require.NoError(t, err)
		require.NotNil(t, aPage.LeafNode)
		assert.Nil(t, aPage.InternalNode)
		assert.Equal(t, uint32(0), aPage.LeafNode.Header.Cells)
		assert.False(t, aPage.IsRoot())
	})

	t.Run("unknown node type", func(t *testing.T) {
		buf := make([]byte, PageSize)
		buf[NodeTypeOffset] = 7
		_, err := unmarshalPage(1, buf)
		require.ErrorIs(t, err, ErrUnknownNodeType)
	})
}

func TestInternalNode_IndexOfChild(t *testing.T) {
	t.Parallel()

	aNode := NewInternalNode()
	aNode.Header.KeysNum = 3
	aNode.Header.RightChild = 4
	aNode.ICells[0] = ICell{Child: 1, Key: 10}
	aNode.ICells[1] = ICell{Child: 2, Key: 20}
	aNode.ICells[2] = ICell{Child: 3, Key: 30}

	testCases := []struct {
		Key      uint32
		Expected uint32
	}{
		{0, 0},
		{10, 0},
		{11, 1},
		{20, 1},
		{25, 2},
		{30, 2},
		{31, 3},
	}

	for _, aTestCase := range testCases {
		assert.Equal(t, aTestCase.Expected, aNode.IndexOfChild(aTestCase.Key), "key %d", aTestCase.Key)
	}

	idx, err := aNode.IndexOfPage(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)
	idx, err = aNode.IndexOfPage(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), idx)
	_, err = aNode.IndexOfPage(5)
	require.Error(t, err)

	assert.Equal(t, []PageIndex{1, 2, 3, 4}, aNode.Children())
	assert.Equal(t, []uint32{10, 20, 30}, aNode.Keys())

	child, err := aNode.Child(3)
	require.NoError(t, err)
	assert.Equal(t, PageIndex(4), child)
	require.NoError(t, aNode.SetChild(0, 8))
	child, err = aNode.Child(0)
	require.NoError(t, err)
	assert.Equal(t, PageIndex(8), child)
	_, err = aNode.Child(4)
	require.Error(t, err)
}

func TestPage_CopyNodeFrom(t *testing.T) {
	t.Parallel()

	src := newRootLeafPage(1, 2, 3)
	dst := &Page{Index: 5, InternalNode: NewInternalNode()}

	dst.copyNodeFrom(src)
	require.NotNil(t, dst.LeafNode)
	assert.Nil(t, dst.InternalNode)
	assert.Equal(t, []uint32{1, 2, 3}, dst.LeafNode.Keys())

	// deep copy, modifying the copy leaves the source untouched
	dst.setRoot(false)
	dst.LeafNode.Cells[0].Key = 100
	assert.True(t, src.IsRoot())
	assert.Equal(t, uint32(1), src.LeafNode.Cells[0].Key)
}
