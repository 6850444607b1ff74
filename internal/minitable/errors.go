package minitable

import (
	"errors"
)

var (
	// Returned by Insert, the table is left untouched.
	ErrDuplicateKey = errors.New("duplicate key")
	ErrTableFull    = errors.New("table full")

	ErrCorruptFile      = errors.New("db file size is not a multiple of page size")
	ErrPageOutOfBounds  = errors.New("page index out of bounds")
	ErrPageNotLoaded    = errors.New("page not loaded")
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrSplitUnsupported = errors.New("splitting a non-root leaf is not supported")
	ErrNoMoreRows       = errors.New("no more rows")
	ErrPagerClosed      = errors.New("pager closed")
	ErrZeroByte         = errors.New("string contains a zero byte")
)
