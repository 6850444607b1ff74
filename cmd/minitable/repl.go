package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RichardKnop/minitable/internal/export"
	"github.com/RichardKnop/minitable/internal/minitable"
	"github.com/RichardKnop/minitable/internal/parser"
	"github.com/RichardKnop/minitable/internal/pkg/util"
)

const (
	cliName string = "db"
)

var rowColumns = []util.Column{
	{Name: "id", Width: 10},
	{Name: "username", Width: minitable.UsernameSize},
	{Name: "email", Width: minitable.EmailSize},
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	Constants
	BTree
	Stats
	Export
	Import
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(name string) metaCommand {
	switch name {
	case "help":
		return Help
	case "exit":
		return Exit
	case "constants":
		return Constants
	case "btree":
		return BTree
	case "stats":
		return Stats
	case "export":
		return Export
	case "import":
		return Import
	default:
		return Unknown
	}
}

type repl struct {
	table  *minitable.Table
	parser minitable.Parser
	out    io.Writer
	pretty bool
}

func newRepl(aTable *minitable.Table, aParser minitable.Parser, out io.Writer, pretty bool) *repl {
	return &repl{
		table:  aTable,
		parser: aParser,
		out:    out,
		pretty: pretty,
	}
}

func (r *repl) printPrompt() {
	fmt.Fprint(r.out, cliName, " > ")
}

// Run reads lines until EOF, the .exit command or until ctx is cancelled.
// Only errors which leave the table in an unknown state are returned,
// everything else is reported to the user and the loop continues.
//
// Lines are read in a separate goroutine, a read blocked on a terminal
// cannot be interrupted. Statements only run on the calling goroutine, so
// once Run returns the table is not used anymore and can be closed.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		lines   = make(chan string)
		scanErr error
	)
	go func() {
		defer close(lines)
		reader := bufio.NewScanner(in)
		for reader.Scan() {
			select {
			case lines <- reader.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = reader.Err()
	}()

	r.printPrompt()

	// REPL (Read-eval-print loop) start
	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			// Print an additional line if we encountered an EOF character
			fmt.Fprintln(r.out)
			if ctx.Err() != nil {
				return nil
			}
			return scanErr
		}

		inputBuffer := strings.TrimSpace(line)
		if inputBuffer == "" {
			r.printPrompt()
			continue
		}
		if isMetaCommand(inputBuffer) {
			exit, err := r.doMetaCommand(ctx, inputBuffer)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		} else if err := r.doStatement(ctx, inputBuffer); err != nil {
			return err
		}
		r.printPrompt()
	}
}

func (r *repl) doMetaCommand(ctx context.Context, inputBuffer string) (bool, error) {
	fields := strings.Fields(inputBuffer[1:])
	name := ""
	if len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	args := fields[min(1, len(fields)):]

	switch doMetaCommand(name) {
	case Help:
		fmt.Fprintln(r.out, ".help           - Show available commands")
		fmt.Fprintln(r.out, ".exit           - Flush the table to disk and close program")
		fmt.Fprintln(r.out, ".constants      - Print node layout constants")
		fmt.Fprintln(r.out, ".btree          - Print the B+tree")
		fmt.Fprintln(r.out, ".stats          - Print page and row counts")
		fmt.Fprintln(r.out, ".export <file>  - Write all rows to a msgpack file")
		fmt.Fprintln(r.out, ".import <file>  - Insert rows from a msgpack file")
	case Exit:
		return true, nil
	case Constants:
		fmt.Fprintln(r.out, "Constants:")
		if err := minitable.PrintConstants(r.out); err != nil {
			return false, err
		}
	case BTree:
		fmt.Fprintln(r.out, "Tree:")
		if err := r.table.PrintTree(ctx, r.out); err != nil {
			return false, err
		}
	case Stats:
		aStats, err := r.table.Stats(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Pages: %d, leaf nodes: %d, internal nodes: %d, rows: %d\n",
			aStats.TotalPages, aStats.LeafNodes, aStats.InternalNodes, aStats.Rows)
	case Export:
		if len(args) != 1 {
			fmt.Fprintln(r.out, "Usage: .export <file>")
			return false, nil
		}
		r.doExport(ctx, args[0])
	case Import:
		if len(args) != 1 {
			fmt.Fprintln(r.out, "Usage: .import <file>")
			return false, nil
		}
		r.doImport(ctx, args[0])
	case Unknown:
		fmt.Fprintf(r.out, "Unrecognized command '%s'.\n", inputBuffer)
	}

	return false, nil
}

func (r *repl) doExport(ctx context.Context, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", err)
		return
	}
	defer f.Close()

	count, err := export.Export(ctx, r.table, f)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(r.out, "Exported %d rows.\n", count)
}

func (r *repl) doImport(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", err)
		return
	}
	defer f.Close()

	aResult, err := export.Import(ctx, r.table, bufio.NewReader(f))
	fmt.Fprintf(r.out, "Imported %d rows, %d duplicates skipped.\n", aResult.Inserted, aResult.Duplicates)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", err)
	}
}

func (r *repl) doStatement(ctx context.Context, inputBuffer string) error {
	stmt, err := r.parser.Parse(ctx, inputBuffer)
	if err != nil {
		switch {
		case errors.Is(err, parser.ErrNegativeID):
			fmt.Fprintln(r.out, "ID must be positive.")
		case errors.Is(err, parser.ErrStringTooLong):
			fmt.Fprintln(r.out, "String is too long.")
		case errors.Is(err, parser.ErrSyntax):
			fmt.Fprintln(r.out, "Syntax error. Could not parse statement.")
		default:
			fmt.Fprintf(r.out, "Unrecognized keyword at start of '%s'.\n", inputBuffer)
		}
		return nil
	}

	aResult, err := r.table.ExecuteStatement(ctx, stmt)
	if errors.Is(err, minitable.ErrSplitUnsupported) {
		fmt.Fprintf(r.out, "Error: %s.\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	switch aResult.Outcome {
	case minitable.DuplicateKey:
		fmt.Fprintln(r.out, "Error: Duplicate key.")
		return nil
	case minitable.TableFull:
		fmt.Fprintln(r.out, "Error: Table full.")
		return nil
	}

	if stmt.Kind == minitable.Select {
		if err := r.printRows(ctx, aResult.Rows); err != nil {
			return err
		}
	}
	fmt.Fprintln(r.out, "Executed.")

	return nil
}

func (r *repl) printRows(ctx context.Context, rows minitable.Iterator) error {
	if r.pretty {
		util.PrintTableHeader(r.out, rowColumns)
	}
	aRow, err := rows(ctx)
	for ; err == nil; aRow, err = rows(ctx) {
		if r.pretty {
			util.PrintTableRow(r.out, rowColumns, []any{aRow.ID, aRow.Username, aRow.Email})
		} else {
			fmt.Fprintln(r.out, aRow.String())
		}
	}
	if r.pretty {
		util.PrintTableEnd(r.out, rowColumns)
	}
	if errors.Is(err, minitable.ErrNoMoreRows) {
		return nil
	}
	return err
}
