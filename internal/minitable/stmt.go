package minitable

import (
	"context"
	"errors"
	"fmt"
)

var (
	errUnrecognizedStatementKind = errors.New("unrecognised statement kind")
)

type StatementKind int

const (
	Insert StatementKind = iota + 1
	Select
)

func (k StatementKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Select:
		return "select"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Statement is a parsed command, Row is only used by inserts.
type Statement struct {
	Kind StatementKind
	Row  Row
}

type ExecuteResult int

const (
	Success ExecuteResult = iota + 1
	DuplicateKey
	TableFull
)

func (r ExecuteResult) String() string {
	switch r {
	case Success:
		return "success"
	case DuplicateKey:
		return "duplicate key"
	case TableFull:
		return "table full"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

type Iterator func(ctx context.Context) (Row, error)

type StatementResult struct {
	Outcome ExecuteResult
	Rows    Iterator
}

// ExecuteStatement runs a statement against the table. Duplicate keys and
// a full table are reported through the outcome, any returned error means
// the table can no longer be trusted.
func (t *Table) ExecuteStatement(ctx context.Context, stmt Statement) (StatementResult, error) {
	switch stmt.Kind {
	case Insert:
		err := t.Insert(ctx, stmt.Row)
		switch {
		case err == nil:
			return StatementResult{Outcome: Success}, nil
		case errors.Is(err, ErrDuplicateKey):
			return StatementResult{Outcome: DuplicateKey}, nil
		case errors.Is(err, ErrTableFull):
			return StatementResult{Outcome: TableFull}, nil
		default:
			return StatementResult{}, err
		}
	case Select:
		return t.Select(ctx)
	}
	return StatementResult{}, fmt.Errorf("%w: %d", errUnrecognizedStatementKind, stmt.Kind)
}
