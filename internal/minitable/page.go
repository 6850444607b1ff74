package minitable

import (
	"fmt"
)

const (
	PageSize        = 4096 // 4 kilobytes
	DefaultMaxPages = 1000
)

type PageIndex uint32

// Page is a node loaded into memory, exactly one of LeafNode and
// InternalNode is set.
type Page struct {
	Index        PageIndex
	LeafNode     *LeafNode
	InternalNode *InternalNode
}

func (p *Page) Type() NodeType {
	if p.InternalNode != nil {
		return NodeTypeInternal
	}
	return NodeTypeLeaf
}

func (p *Page) IsRoot() bool {
	if p.InternalNode != nil {
		return p.InternalNode.Header.IsRoot
	}
	return p.LeafNode.Header.IsRoot
}

func (p *Page) setRoot(isRoot bool) {
	if p.LeafNode != nil {
		p.LeafNode.Header.IsRoot = isRoot
	} else if p.InternalNode != nil {
		p.InternalNode.Header.IsRoot = isRoot
	}
}

func (p *Page) Parent() PageIndex {
	if p.InternalNode != nil {
		return p.InternalNode.Header.Parent
	}
	return p.LeafNode.Header.Parent
}

func (p *Page) setParent(parentIdx PageIndex) {
	if p.LeafNode != nil {
		p.LeafNode.Header.Parent = parentIdx
	} else if p.InternalNode != nil {
		p.InternalNode.Header.Parent = parentIdx
	}
}

// copyNodeFrom replaces contents of the page with a deep copy of another page's node.
func (p *Page) copyNodeFrom(src *Page) {
	p.LeafNode, p.InternalNode = nil, nil
	if src.LeafNode != nil {
		aCopy := *src.LeafNode
		p.LeafNode = &aCopy
	} else if src.InternalNode != nil {
		aCopy := *src.InternalNode
		p.InternalNode = &aCopy
	}
}

func marshalPage(aPage *Page, buf []byte) ([]byte, error) {
	if aPage.LeafNode != nil {
		data, err := aPage.LeafNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling leaf node: %w", err)
		}
		return data, nil
	} else if aPage.InternalNode != nil {
		data, err := aPage.InternalNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling internal node: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("page %d is neither internal nor leaf node", aPage.Index)
}

// unmarshalPage decodes a page buffer, an all zero buffer is an empty leaf.
func unmarshalPage(pageIdx PageIndex, buf []byte) (*Page, error) {
	switch NodeType(buf[NodeTypeOffset]) {
	case NodeTypeLeaf:
		leaf := NewLeafNode()
		if _, err := leaf.Unmarshal(buf); err != nil {
			return nil, err
		}
		return &Page{Index: pageIdx, LeafNode: leaf}, nil
	case NodeTypeInternal:
		internal := NewInternalNode()
		if _, err := internal.Unmarshal(buf); err != nil {
			return nil, err
		}
		return &Page{Index: pageIdx, InternalNode: internal}, nil
	}
	return nil, fmt.Errorf("%w: page %d type byte %d", ErrUnknownNodeType, pageIdx, buf[NodeTypeOffset])
}
