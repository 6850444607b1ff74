package minitable

import (
	"context"
	"fmt"
)

type Cursor struct {
	Table      *Table
	PageIdx    PageIndex
	CellIdx    uint32
	EndOfTable bool // position one past the last row
}

func (c *Cursor) LeafNodeInsert(ctx context.Context, key uint32, aRow Row) error {
	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("get page: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("error inserting row to a non leaf node, key %d", key)
	}

	if aPage.LeafNode.IsFull() {
		return c.LeafNodeSplitInsert(ctx, key, aRow)
	}

	aCell, err := newCell(key, aRow)
	if err != nil {
		return err
	}

	return aPage.LeafNode.InsertCell(c.CellIdx, aCell)
}

// Create a new node and move half the cells over.
// Insert the new value in one of the two nodes.
// Update parent or create a new parent.
func (c *Cursor) LeafNodeSplitInsert(ctx context.Context, key uint32, aRow Row) error {
	aSplitPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("get page: %w", err)
	}
	if err := c.Table.checkSplitCapacity(ctx, aSplitPage); err != nil {
		return err
	}

	aCell, err := newCell(key, aRow)
	if err != nil {
		return err
	}

	aNewPage, err := c.Table.newPage(ctx)
	if err != nil {
		return fmt.Errorf("leaf node split insert: %w", err)
	}

	c.Table.logger.Sugar().With(
		"key", int(key),
		"page_index", int(c.PageIdx),
		"new_page_index", int(aNewPage.Index),
	).Debug("leaf node split insert")

	var (
		oldNode = aSplitPage.LeafNode
		newNode = NewLeafNode()
	)
	aNewPage.LeafNode = newNode
	aNewPage.InternalNode = nil
	newNode.Header.Parent = oldNode.Header.Parent
	newNode.Header.NextLeaf = oldNode.Header.NextLeaf
	oldNode.Header.NextLeaf = aNewPage.Index

	// Existing cells plus the new one in key order
	cells := make([]Cell, 0, LeafNodeMaxCells+1)
	cells = append(cells, oldNode.Cells[:c.CellIdx]...)
	cells = append(cells, aCell)
	cells = append(cells, oldNode.Cells[c.CellIdx:oldNode.Header.Cells]...)

	oldNode.Cells = [LeafNodeMaxCells]Cell{}
	oldNode.Header.Cells = 0
	oldNode.AppendCells(cells[:LeafNodeLeftSplitCount]...)
	newNode.AppendCells(cells[LeafNodeLeftSplitCount:]...)

	if oldNode.Header.IsRoot {
		_, err := c.Table.createNewRoot(ctx, aNewPage.Index)
		return err
	}

	return c.Table.insertIntoParent(ctx, aSplitPage, aNewPage.Index)
}

func newCell(key uint32, aRow Row) (Cell, error) {
	aCell := Cell{Key: key}
	if _, err := aRow.Marshal(aCell.Value[:]); err != nil {
		return Cell{}, fmt.Errorf("marshal row %d: %w", key, err)
	}
	return aCell, nil
}

// Value returns serialized row at the cursor position, it is a view
// into the cached page.
func (c *Cursor) Value(ctx context.Context) ([]byte, error) {
	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return nil, fmt.Errorf("cursor value: %w", err)
	}
	if aPage.LeafNode == nil {
		return nil, fmt.Errorf("cursor value: page %d is not a leaf node", c.PageIdx)
	}
	if c.EndOfTable || c.CellIdx >= aPage.LeafNode.Header.Cells {
		return nil, fmt.Errorf("cursor value: cell %d out of %d cells", c.CellIdx, aPage.LeafNode.Header.Cells)
	}
	return aPage.LeafNode.Cells[c.CellIdx].Value[:], nil
}

func (c *Cursor) Row(ctx context.Context) (Row, error) {
	value, err := c.Value(ctx)
	if err != nil {
		return Row{}, err
	}
	var aRow Row
	if err := UnmarshalRow(value, &aRow); err != nil {
		return Row{}, err
	}
	return aRow, nil
}

// Advance moves the cursor to the next cell, following the sibling
// pointer when the current leaf is exhausted.
func (c *Cursor) Advance(ctx context.Context) error {
	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("cursor advance: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("cursor advance: page %d is not a leaf node", c.PageIdx)
	}

	c.CellIdx += 1
	if c.CellIdx < aPage.LeafNode.Header.Cells {
		return nil
	}

	if aPage.LeafNode.Header.NextLeaf == 0 {
		// This was rightmost leaf
		c.EndOfTable = true
		return nil
	}
	c.PageIdx = aPage.LeafNode.Header.NextLeaf
	c.CellIdx = 0

	return nil
}

func (c *Cursor) fetchRow(ctx context.Context) (Row, error) {
	if c.EndOfTable {
		return Row{}, ErrNoMoreRows
	}
	aRow, err := c.Row(ctx)
	if err != nil {
		return Row{}, err
	}
	if err := c.Advance(ctx); err != nil {
		return Row{}, err
	}
	return aRow, nil
}
