package minitable

import (
	"context"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
)

// Internal nodes need at least two keys so both halves of a split keep one.
const minimumICells = 2

type Table struct {
	RootPageIdx   PageIndex
	pager         Pager
	maxPages      uint32
	maxICells     uint32
	rootSplitOnly bool
	logger        *zap.Logger
}

// Open opens the table file at path, creating it when it does not exist.
// An empty file gets an empty root leaf at page 0.
func Open(ctx context.Context, path string, opts ...TableOption) (*Table, error) {
	aTable := newTable(opts...)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open db file: %w", err)
	}

	aPager, err := NewPager(aTable.logger, file, aTable.maxPages)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	aTable.pager = aPager

	if err := aTable.init(ctx); err != nil {
		_ = file.Close()
		return nil, err
	}

	aTable.logger.Sugar().With(
		"path", path,
		"total_pages", int(aPager.TotalPages()),
	).Debug("opened table")

	return aTable, nil
}

// NewTable creates a table on top of an existing pager, root is always page 0.
func NewTable(ctx context.Context, pager Pager, opts ...TableOption) (*Table, error) {
	aTable := newTable(opts...)
	aTable.pager = pager
	aTable.maxPages = pager.MaxPages()
	if err := aTable.init(ctx); err != nil {
		return nil, err
	}
	return aTable, nil
}

func newTable(opts ...TableOption) *Table {
	aTable := &Table{
		RootPageIdx: 0,
		maxPages:    DefaultMaxPages,
		maxICells:   InternalNodeMaxCells,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(aTable)
	}
	return aTable
}

func (t *Table) init(ctx context.Context) error {
	aRootPage, err := t.pager.GetPage(ctx, t.RootPageIdx)
	if err != nil {
		return fmt.Errorf("load root page: %w", err)
	}
	// A brand new page 0 is all zeroes, an empty leaf which is not flagged
	// as root yet.
	aRootPage.setRoot(true)
	return nil
}

// Close flushes all pages to the file and closes it.
func (t *Table) Close(ctx context.Context) error {
	if err := t.pager.Close(ctx); err != nil {
		return fmt.Errorf("close table: %w", err)
	}
	return nil
}

func (t *Table) TotalPages() uint32 {
	return t.pager.TotalPages()
}

func (t *Table) SeekFirst(ctx context.Context) (*Cursor, error) {
	aCursor, err := t.Seek(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}
	aPage, err := t.pager.GetPage(ctx, aCursor.PageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}
	aCursor.EndOfTable = aPage.LeafNode.Header.Cells == 0
	return aCursor, nil
}

// Seek the cursor for a key, if it does not exist then return the cursor
// for the page and cell where it should be inserted
func (t *Table) Seek(ctx context.Context, key uint32) (*Cursor, error) {
	aRootPage, err := t.pager.GetPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	if aRootPage.LeafNode != nil {
		return t.leafNodeSeek(t.RootPageIdx, aRootPage, key), nil
	} else if aRootPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aRootPage, key)
	}
	return nil, fmt.Errorf("seek: root page is neither leaf nor internal node")
}

func (t *Table) leafNodeSeek(pageIdx PageIndex, aPage *Page, key uint32) *Cursor {
	var (
		minIdx uint32
		maxIdx = aPage.LeafNode.Header.Cells

		aCursor = Cursor{
			Table:   t,
			PageIdx: pageIdx,
		}
	)

	for i := maxIdx; i != minIdx; {
		index := (minIdx + i) / 2
		keyIdx := aPage.LeafNode.Cells[index].Key
		if key == keyIdx {
			aCursor.CellIdx = index
			return &aCursor
		}
		if key < keyIdx {
			i = index
		} else {
			minIdx = index + 1
		}
	}

	aCursor.CellIdx = minIdx

	return &aCursor
}

func (t *Table) internalNodeSeek(ctx context.Context, aPage *Page, key uint32) (*Cursor, error) {
	childIdx := aPage.InternalNode.IndexOfChild(key)
	childPageIdx, err := aPage.InternalNode.Child(childIdx)
	if err != nil {
		return nil, err
	}

	aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return nil, fmt.Errorf("internal node seek: %w", err)
	}

	if aChildPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aChildPage, key)
	}
	return t.leafNodeSeek(childPageIdx, aChildPage, key), nil
}

// Insert stores a row under its ID. Duplicate keys and a full table are
// detected before anything is modified.
func (t *Table) Insert(ctx context.Context, aRow Row) error {
	aCursor, err := t.Seek(ctx, aRow.ID)
	if err != nil {
		return err
	}

	aPage, err := t.pager.GetPage(ctx, aCursor.PageIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if aCursor.CellIdx < aPage.LeafNode.Header.Cells && aPage.LeafNode.Cells[aCursor.CellIdx].Key == aRow.ID {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, aRow.ID)
	}

	return aCursor.LeafNodeInsert(ctx, aRow.ID, aRow)
}

// checkSplitCapacity walks from a full leaf towards the root and counts how
// many new pages splitting it would allocate.
func (t *Table) checkSplitCapacity(ctx context.Context, aLeafPage *Page) error {
	if t.rootSplitOnly && !aLeafPage.IsRoot() {
		return fmt.Errorf("%w: page %d", ErrSplitUnsupported, aLeafPage.Index)
	}

	needed := uint32(1)
	for aPage := aLeafPage; ; {
		if aPage.IsRoot() {
			// old root gets copied into a new left child
			needed += 1
			break
		}
		aParentPage, err := t.pager.GetPage(ctx, aPage.Parent())
		if err != nil {
			return fmt.Errorf("check split capacity: %w", err)
		}
		if aParentPage.InternalNode == nil {
			return fmt.Errorf("check split capacity: parent %d of page %d is not an internal node", aParentPage.Index, aPage.Index)
		}
		if aParentPage.InternalNode.Header.KeysNum < t.maxICells {
			break
		}
		needed += 1
		aPage = aParentPage
	}

	if t.pager.TotalPages()+needed > t.pager.MaxPages() {
		return fmt.Errorf("%w: %d pages used, split needs %d more, limit is %d", ErrTableFull, t.pager.TotalPages(), needed, t.pager.MaxPages())
	}

	return nil
}

// newPage allocates a page past the last one.
func (t *Table) newPage(ctx context.Context) (*Page, error) {
	newPageIdx := PageIndex(t.pager.TotalPages())
	aNewPage, err := t.pager.GetPage(ctx, newPageIdx)
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return aNewPage, nil
}

// Handle splitting the root.
// Old root copied to new page, becomes left child.
// Address of right child passed in.
// Re-initialize root page to contain the new root node.
// New root node points to two children.
func (t *Table) createNewRoot(ctx context.Context, rightChildPageIdx PageIndex) (*Page, error) {
	oldRootPage, err := t.pager.GetPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	rightChildPage, err := t.pager.GetPage(ctx, rightChildPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	leftChildPage, err := t.newPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	t.logger.Sugar().With(
		"left_child_index", int(leftChildPage.Index),
		"right_child_index", int(rightChildPageIdx),
	).Debug("create new root")

	leftChildPage.copyNodeFrom(oldRootPage)
	leftChildPage.setRoot(false)
	if leftChildPage.InternalNode != nil {
		for _, childPageIdx := range leftChildPage.InternalNode.Children() {
			aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
			if err != nil {
				return nil, fmt.Errorf("create new root: %w", err)
			}
			aChildPage.setParent(leftChildPage.Index)
		}
	}

	leftChildMaxKey, err := t.GetMaxKey(ctx, leftChildPage)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	// Change root node to a new internal node
	newRootNode := NewInternalNode()
	newRootNode.Header.IsRoot = true
	newRootNode.Header.KeysNum = 1
	newRootNode.ICells[0] = ICell{Child: leftChildPage.Index, Key: leftChildMaxKey}
	newRootNode.Header.RightChild = rightChildPageIdx
	oldRootPage.LeafNode = nil
	oldRootPage.InternalNode = newRootNode

	leftChildPage.setParent(t.RootPageIdx)
	rightChildPage.setParent(t.RootPageIdx)

	return leftChildPage, nil
}

// insertIntoParent is called after a node split, the left half stays in
// the split page whose max key may have shrunk, the right half lives in
// a new page which needs a pointer in the parent.
func (t *Table) insertIntoParent(ctx context.Context, aSplitPage *Page, newPageIdx PageIndex) error {
	aParentPage, err := t.pager.GetPage(ctx, aSplitPage.Parent())
	if err != nil {
		return fmt.Errorf("insert into parent: %w", err)
	}
	if aParentPage.InternalNode == nil {
		return fmt.Errorf("insert into parent: page %d is not an internal node", aParentPage.Index)
	}

	childIdx, err := aParentPage.InternalNode.IndexOfPage(aSplitPage.Index)
	if err != nil {
		return fmt.Errorf("insert into parent: %w", err)
	}
	if childIdx < aParentPage.InternalNode.Header.KeysNum {
		maxAfterSplit, err := t.GetMaxKey(ctx, aSplitPage)
		if err != nil {
			return fmt.Errorf("insert into parent: %w", err)
		}
		aParentPage.InternalNode.ICells[childIdx].Key = maxAfterSplit
	}

	return t.InternalNodeInsert(ctx, aParentPage.Index, newPageIdx)
}

// InternalNodeInsert adds a new child/key pair to parent that corresponds to child.
func (t *Table) InternalNodeInsert(ctx context.Context, parentPageIdx, childPageIdx PageIndex) error {
	aParentPage, err := t.pager.GetPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	if aParentPage.InternalNode == nil {
		return fmt.Errorf("internal node insert: page %d is not an internal node", parentPageIdx)
	}

	if aParentPage.InternalNode.Header.KeysNum >= t.maxICells {
		return t.InternalNodeSplitInsert(ctx, parentPageIdx, childPageIdx)
	}

	aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	aChildPage.setParent(parentPageIdx)

	childMaxKey, err := t.GetMaxKey(ctx, aChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	var (
		aNode            = aParentPage.InternalNode
		originalKeyCount = aNode.Header.KeysNum
	)

	rightChildPageIdx := aNode.Header.RightChild
	rightChildPage, err := t.pager.GetPage(ctx, rightChildPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	rightChildMaxKey, err := t.GetMaxKey(ctx, rightChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	if childMaxKey > rightChildMaxKey {
		// Replace right child
		aNode.ICells[originalKeyCount] = ICell{Child: rightChildPageIdx, Key: rightChildMaxKey}
		aNode.Header.KeysNum += 1
		aNode.Header.RightChild = childPageIdx
		return nil
	}

	// Search only the live keys, the slot past them is not initialized
	index := aNode.IndexOfChild(childMaxKey)
	aNode.Header.KeysNum += 1

	// Make room for the new cell
	for i := originalKeyCount; i > index; i-- {
		aNode.ICells[i] = aNode.ICells[i-1]
	}
	aNode.ICells[index] = ICell{Child: childPageIdx, Key: childMaxKey}

	return nil
}

// InternalNodeSplitInsert splits a full internal node while inserting a new
// child. Lower half of children stays in the original page, upper half moves
// to a new sibling on its right. The sibling is then inserted into the parent,
// which could cause the parent to split as well. If the original node
// is root, a new root is created.
func (t *Table) InternalNodeSplitInsert(ctx context.Context, pageIdx, childPageIdx PageIndex) error {
	aSplitPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	aSplitNode := aSplitPage.InternalNode

	childPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	childMaxKey, err := t.GetMaxKey(ctx, childPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	rightChildPage, err := t.pager.GetPage(ctx, aSplitNode.Header.RightChild)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	rightChildMaxKey, err := t.GetMaxKey(ctx, rightChildPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	// All children with their max keys, including the right child and the new one
	entries := make([]ICell, 0, aSplitNode.Header.KeysNum+2)
	entries = append(entries, aSplitNode.ICells[:aSplitNode.Header.KeysNum]...)
	entries = append(entries, ICell{Child: aSplitNode.Header.RightChild, Key: rightChildMaxKey})
	position, _ := slices.BinarySearchFunc(entries, childMaxKey, func(e ICell, key uint32) int {
		switch {
		case e.Key < key:
			return -1
		case e.Key > key:
			return 1
		}
		return 0
	})
	entries = slices.Insert(entries, position, ICell{Child: childPageIdx, Key: childMaxKey})

	aNewPage, err := t.newPage(ctx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	// New pages by default are leafs
	aNewPage.LeafNode = nil
	aNewPage.InternalNode = NewInternalNode()
	aNewPage.InternalNode.Header.Parent = aSplitNode.Header.Parent

	t.logger.Sugar().With(
		"page_index", int(pageIdx),
		"new_page_index", int(aNewPage.Index),
		"children", len(entries),
	).Debug("internal node split insert")

	leftCount := (len(entries) + 1) / 2
	if err := t.fillInternalNode(ctx, aSplitPage, entries[:leftCount]); err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	if err := t.fillInternalNode(ctx, aNewPage, entries[leftCount:]); err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	if aSplitNode.Header.IsRoot {
		_, err := t.createNewRoot(ctx, aNewPage.Index)
		return err
	}

	return t.insertIntoParent(ctx, aSplitPage, aNewPage.Index)
}

// fillInternalNode replaces all children of an internal node, the last entry
// becomes the right child.
func (t *Table) fillInternalNode(ctx context.Context, aPage *Page, entries []ICell) error {
	aNode := aPage.InternalNode
	aNode.ICells = [InternalNodeMaxCells]ICell{}
	aNode.Header.KeysNum = uint32(len(entries) - 1)
	copy(aNode.ICells[:], entries[:len(entries)-1])
	aNode.Header.RightChild = entries[len(entries)-1].Child

	for _, anEntry := range entries {
		aChildPage, err := t.pager.GetPage(ctx, anEntry.Child)
		if err != nil {
			return err
		}
		aChildPage.setParent(aPage.Index)
	}

	return nil
}

// GetMaxKey returns the largest key in a subtree by following right children
// down to the rightmost leaf.
func (t *Table) GetMaxKey(ctx context.Context, aPage *Page) (uint32, error) {
	if aPage.LeafNode != nil {
		if aPage.LeafNode.Header.Cells == 0 {
			return 0, fmt.Errorf("get max key: leaf node has no cells")
		}
		return aPage.LeafNode.LastCell().Key, nil
	}
	rightChild, err := t.pager.GetPage(ctx, aPage.InternalNode.Header.RightChild)
	if err != nil {
		return 0, fmt.Errorf("get max key: %w", err)
	}
	return t.GetMaxKey(ctx, rightChild)
}

// BFS visits all pages of the tree level by level, starting with the root.
func (t *Table) BFS(ctx context.Context, f func(*Page) error) error {
	queue := []PageIndex{t.RootPageIdx}
	for len(queue) > 0 {
		pageIdx := queue[0]
		queue = queue[1:]

		aPage, err := t.pager.GetPage(ctx, pageIdx)
		if err != nil {
			return fmt.Errorf("bfs: %w", err)
		}
		if err := f(aPage); err != nil {
			return err
		}
		if aPage.InternalNode != nil {
			queue = append(queue, aPage.InternalNode.Children()...)
		}
	}
	return nil
}

type Stats struct {
	TotalPages    uint32
	LeafNodes     int
	InternalNodes int
	Rows          int
}

func (t *Table) Stats(ctx context.Context) (Stats, error) {
	aStats := Stats{TotalPages: t.pager.TotalPages()}
	err := t.BFS(ctx, func(aPage *Page) error {
		if aPage.InternalNode != nil {
			aStats.InternalNodes += 1
			return nil
		}
		aStats.LeafNodes += 1
		aStats.Rows += int(aPage.LeafNode.Header.Cells)
		return nil
	})
	return aStats, err
}
