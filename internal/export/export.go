// Package export dumps table rows into a msgpack stream and loads them back.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack"

	"github.com/RichardKnop/minitable/internal/minitable"
)

type Table interface {
	Select(context.Context) (minitable.StatementResult, error)
	ExecuteStatement(context.Context, minitable.Statement) (minitable.StatementResult, error)
}

type record struct {
	ID       uint32 `msgpack:"id"`
	Username string `msgpack:"username"`
	Email    string `msgpack:"email"`
}

type ImportResult struct {
	Inserted   int
	Duplicates int
}

// Export writes every row in ascending ID order, one msgpack map per row.
func Export(ctx context.Context, aTable Table, w io.Writer) (int, error) {
	aResult, err := aTable.Select(ctx)
	if err != nil {
		return 0, err
	}

	var (
		enc   = msgpack.NewEncoder(w)
		count int
	)
	for {
		aRow, err := aResult.Rows(ctx)
		if errors.Is(err, minitable.ErrNoMoreRows) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err := enc.Encode(record{ID: aRow.ID, Username: aRow.Username, Email: aRow.Email}); err != nil {
			return count, fmt.Errorf("encode row %d: %w", aRow.ID, err)
		}
		count += 1
	}
}

// Import inserts rows read from a stream produced by Export. Rows already
// present are counted as duplicates and skipped, a full table stops the import.
func Import(ctx context.Context, aTable Table, r io.Reader) (ImportResult, error) {
	var (
		dec     = msgpack.NewDecoder(r)
		aResult ImportResult
	)
	for {
		var aRecord record
		if err := dec.Decode(&aRecord); err != nil {
			if errors.Is(err, io.EOF) {
				return aResult, nil
			}
			return aResult, fmt.Errorf("decode row: %w", err)
		}

		stmtResult, err := aTable.ExecuteStatement(ctx, minitable.Statement{
			Kind: minitable.Insert,
			Row: minitable.Row{
				ID:       aRecord.ID,
				Username: aRecord.Username,
				Email:    aRecord.Email,
			},
		})
		if err != nil {
			return aResult, err
		}

		switch stmtResult.Outcome {
		case minitable.Success:
			aResult.Inserted += 1
		case minitable.DuplicateKey:
			aResult.Duplicates += 1
		case minitable.TableFull:
			return aResult, fmt.Errorf("%w: row %d", minitable.ErrTableFull, aRecord.ID)
		}
	}
}
