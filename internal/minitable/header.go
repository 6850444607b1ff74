package minitable

import (
	"fmt"
)

type NodeType byte

const (
	NodeTypeLeaf NodeType = iota
	NodeTypeInternal
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeLeaf:
		return "leaf"
	case NodeTypeInternal:
		return "internal"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

const (
	NodeTypeOffset       = 0
	IsRootOffset         = 1
	ParentPointerOffset  = 2
	CommonNodeHeaderSize = 6
)

// Header is the common header shared by leaf and internal nodes.
// Parent is kept up to date by splits and used to propagate them upwards.
type Header struct {
	IsInternal bool
	IsRoot     bool
	Parent     PageIndex
}

func (h *Header) Size() uint64 {
	return CommonNodeHeaderSize
}

func (h *Header) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	if h.IsInternal {
		buf[NodeTypeOffset] = byte(NodeTypeInternal)
	} else {
		buf[NodeTypeOffset] = byte(NodeTypeLeaf)
	}

	if h.IsRoot {
		buf[IsRootOffset] = 1
	} else {
		buf[IsRootOffset] = 0
	}

	marshalUint32(buf, uint32(h.Parent), ParentPointerOffset)

	return buf[:size], nil
}

func (h *Header) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < h.Size() {
		return 0, fmt.Errorf("node header buffer too short: %d", len(buf))
	}

	switch NodeType(buf[NodeTypeOffset]) {
	case NodeTypeLeaf:
		h.IsInternal = false
	case NodeTypeInternal:
		h.IsInternal = true
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownNodeType, buf[NodeTypeOffset])
	}
	h.IsRoot = buf[IsRootOffset] == 1
	h.Parent = PageIndex(unmarshalUint32(buf, ParentPointerOffset))

	return h.Size(), nil
}
