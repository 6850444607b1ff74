package minitable

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// PrintConstants writes the layout constants of rows and nodes.
func PrintConstants(w io.Writer) error {
	constants := []struct {
		name  string
		value int
	}{
		{"Row size", RowSize},
		{"Common node header size", CommonNodeHeaderSize},
		{"Leaf node header size", LeafNodeHeaderSize},
		{"Leaf node cell size", LeafNodeCellSize},
		{"Leaf node space for cells", LeafNodeSpaceForCells},
		{"Leaf node max number of cells", LeafNodeMaxCells},
		{"Internal node header size", InternalNodeHeaderSize},
		{"Internal node cell size", InternalNodeCellSize},
		{"Internal node max number of cells", InternalNodeMaxCells},
	}
	for _, c := range constants {
		if _, err := fmt.Fprintf(w, "%s = %d.\n", c.name, c.value); err != nil {
			return err
		}
	}
	return nil
}

// PrintTree writes the tree depth first, each level indented by two spaces.
// Leaves list their keys, internal nodes print each child followed
// by its key and then the right child.
func (t *Table) PrintTree(ctx context.Context, w io.Writer) error {
	return t.printNode(ctx, w, t.RootPageIdx, 0)
}

func (t *Table) printNode(ctx context.Context, w io.Writer, pageIdx PageIndex, level int) error {
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("print tree: %w", err)
	}

	indent := strings.Repeat("  ", level)

	if aPage.LeafNode != nil {
		if _, err := fmt.Fprintf(w, "%s- leaf %d\n", indent, aPage.LeafNode.Header.Cells); err != nil {
			return err
		}
		for _, key := range aPage.LeafNode.Keys() {
			if _, err := fmt.Fprintf(w, "%s  - %d\n", indent, key); err != nil {
				return err
			}
		}
		return nil
	}

	aNode := aPage.InternalNode
	if _, err := fmt.Fprintf(w, "%s- internal %d\n", indent, aNode.Header.KeysNum); err != nil {
		return err
	}
	for idx := range aNode.Header.KeysNum {
		if err := t.printNode(ctx, w, aNode.ICells[idx].Child, level+1); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s  - key %d\n", indent, aNode.ICells[idx].Key); err != nil {
			return err
		}
	}
	return t.printNode(ctx, w, aNode.Header.RightChild, level+1)
}
