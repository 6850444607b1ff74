package minitable

import (
	"context"
	"errors"
	"fmt"
)

// Select returns an iterator over all rows in ascending ID order. The
// iterator returns ErrNoMoreRows once the table is exhausted.
func (t *Table) Select(ctx context.Context) (StatementResult, error) {
	aCursor, err := t.SeekFirst(ctx)
	if err != nil {
		return StatementResult{}, fmt.Errorf("select: %w", err)
	}

	return StatementResult{
		Outcome: Success,
		Rows: func(ctx context.Context) (Row, error) {
			return aCursor.fetchRow(ctx)
		},
	}, nil
}

// SelectAll drains Select into a slice.
func (t *Table) SelectAll(ctx context.Context) ([]Row, error) {
	aResult, err := t.Select(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for {
		aRow, err := aResult.Rows(ctx)
		if errors.Is(err, ErrNoMoreRows) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, aRow)
	}
}
