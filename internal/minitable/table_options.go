package minitable

import (
	"go.uber.org/zap"
)

type TableOption func(*Table)

func WithLogger(logger *zap.Logger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMaxPages limits number of pages of the table file, only used by Open.
func WithMaxPages(maxPages uint32) TableOption {
	return func(t *Table) {
		if maxPages > 0 {
			t.maxPages = maxPages
		}
	}
}

// WithInternalNodeMaxCells lowers the number of keys an internal node can hold
// before it splits, useful to build deep trees with few rows.
func WithInternalNodeMaxCells(maxCells uint32) TableOption {
	return func(t *Table) {
		switch {
		case maxCells < minimumICells:
			t.maxICells = minimumICells
		case maxCells > InternalNodeMaxCells:
			t.maxICells = InternalNodeMaxCells
		default:
			t.maxICells = maxCells
		}
	}
}

// WithRootSplitOnly restricts splitting to a leaf which is also the root,
// splitting any other leaf fails with ErrSplitUnsupported.
func WithRootSplitOnly() TableOption {
	return func(t *Table) {
		t.rootSplitOnly = true
	}
}
