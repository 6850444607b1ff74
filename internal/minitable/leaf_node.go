package minitable

import (
	"fmt"
)

const (
	LeafNodeNumCellsOffset = CommonNodeHeaderSize
	LeafNodeNextLeafOffset = LeafNodeNumCellsOffset + 4
	LeafNodeHeaderSize     = CommonNodeHeaderSize + 4 + 4

	LeafNodeKeySize       = 4
	LeafNodeCellSize      = LeafNodeKeySize + RowSize
	LeafNodeSpaceForCells = PageSize - LeafNodeHeaderSize
	LeafNodeMaxCells      = LeafNodeSpaceForCells / LeafNodeCellSize

	// All existing cells plus the new one are divided between the old (left)
	// and the new (right) leaf when splitting.
	LeafNodeRightSplitCount = (LeafNodeMaxCells + 1) / 2
	LeafNodeLeftSplitCount  = LeafNodeMaxCells + 1 - LeafNodeRightSplitCount
)

type LeafNodeHeader struct {
	Header
	Cells    uint32
	NextLeaf PageIndex // 0 means there is no leaf to the right
}

func (h *LeafNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *LeafNodeHeader) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := h.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	marshalUint32(buf, h.Cells, i)
	i += 4
	marshalUint32(buf, uint32(h.NextLeaf), i)

	return buf[:size], nil
}

func (h *LeafNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.Cells = unmarshalUint32(buf, i)
	i += 4
	h.NextLeaf = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

type Cell struct {
	Key   uint32
	Value [RowSize]byte
}

func (c *Cell) Size() uint64 {
	return LeafNodeCellSize
}

func (c *Cell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint32(buf, c.Key, 0)
	copy(buf[LeafNodeKeySize:], c.Value[:])

	return buf[:size], nil
}

func (c *Cell) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < c.Size() {
		return 0, fmt.Errorf("leaf cell buffer too short: %d", len(buf))
	}

	c.Key = unmarshalUint32(buf, 0)
	copy(c.Value[:], buf[LeafNodeKeySize:LeafNodeCellSize])

	return c.Size(), nil
}

// LeafNode holds up to LeafNodeMaxCells cells sorted by key.
type LeafNode struct {
	Header LeafNodeHeader
	Cells  [LeafNodeMaxCells]Cell
}

func NewLeafNode(cells ...Cell) *LeafNode {
	aNode := new(LeafNode)
	aNode.AppendCells(cells...)
	return aNode
}

func (n *LeafNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.Cells)*LeafNodeCellSize
}

func (n *LeafNode) Marshal(buf []byte) ([]byte, error) {
	size := n.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := n.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		cbuf, err := n.Cells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(cbuf))
	}

	return buf[:i], nil
}

func (n *LeafNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	if n.Header.Cells > LeafNodeMaxCells {
		return 0, fmt.Errorf("leaf node has %d cells, maximum is %d", n.Header.Cells, LeafNodeMaxCells)
	}

	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		ci, err := n.Cells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}

func (n *LeafNode) IsFull() bool {
	return n.Header.Cells >= LeafNodeMaxCells
}

// InsertCell shifts cells at or after idx one slot to the right and writes
// the new cell into the freed slot.
func (n *LeafNode) InsertCell(idx uint32, aCell Cell) error {
	if n.IsFull() {
		return fmt.Errorf("leaf node is full, %d cells", n.Header.Cells)
	}
	if idx > n.Header.Cells {
		return fmt.Errorf("cell index %d out of cells %d", idx, n.Header.Cells)
	}

	for i := n.Header.Cells; i > idx; i-- {
		n.Cells[i] = n.Cells[i-1]
	}
	n.Cells[idx] = aCell
	n.Header.Cells += 1

	return nil
}

func (n *LeafNode) AppendCells(cells ...Cell) {
	for _, aCell := range cells {
		n.Cells[n.Header.Cells] = aCell
		n.Header.Cells += 1
	}
}

func (n *LeafNode) LastCell() Cell {
	return n.Cells[n.Header.Cells-1]
}

func (n *LeafNode) Keys() []uint32 {
	keys := make([]uint32, 0, n.Header.Cells)
	for idx := range n.Header.Cells {
		keys = append(keys, n.Cells[idx].Key)
	}
	return keys
}
