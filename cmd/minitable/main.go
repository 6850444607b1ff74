package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/RichardKnop/minitable/internal/minitable"
	"github.com/RichardKnop/minitable/internal/parser"
	"github.com/RichardKnop/minitable/internal/pkg/logging"
)

const defaultDbFileName = "db"

var (
	maxPagesFlag uint
	prettyFlag   bool
)

func init() {
	flag.UintVar(&maxPagesFlag, "max-pages", minitable.DefaultMaxPages, "Maximum number of pages in the db file")
	flag.BoolVar(&prettyFlag, "pretty", false, "Print selected rows as a table")
}

func main() {
	flag.Parse()

	dbFileName := defaultDbFileName
	if flag.NArg() > 0 {
		dbFileName = flag.Arg(0)
	}

	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // flushes buffer, if any

	if err := run(logger, dbFileName); err != nil {
		logger.Sugar().With("error", err).Error("exiting")
		os.Exit(1)
	}
}

func run(logger *zap.Logger, dbFileName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aTable, err := minitable.Open(
		ctx,
		dbFileName,
		minitable.WithLogger(logger),
		minitable.WithMaxPages(uint32(maxPagesFlag)),
	)
	if err != nil {
		return err
	}

	// Ctrl-C stops the loop even while it waits for input, the line
	// being typed is discarded
	aRepl := newRepl(aTable, parser.New(logger), os.Stdout, prettyFlag)
	replErr := aRepl.Run(ctx, os.Stdin)

	// Flush pages even when the loop failed, rows inserted so far are kept
	if err := aTable.Close(context.Background()); err != nil {
		return fmt.Errorf("close table: %w", err)
	}

	return replErr
}
