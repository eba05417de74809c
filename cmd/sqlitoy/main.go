package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/RichardKnop/sqlitoy"
	"github.com/RichardKnop/sqlitoy/internal/pkg/logging"
	"github.com/RichardKnop/sqlitoy/internal/pkg/util"
	"github.com/RichardKnop/sqlitoy/internal/record"
	"github.com/RichardKnop/sqlitoy/internal/statement"
)

const (
	cliName string = "sqlitoy"
	prompt  string = "db > "
)

var userColumns = []util.Column{
	{Name: "id", Width: 10},
	{Name: "username", Width: record.UsernameMaxLength},
	{Name: "email", Width: record.EmailMaxLength},
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	BTree
	Constants
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(inputBuffer string) metaCommand {
	switch inputBuffer {
	case "help":
		return Help
	case "exit":
		return Exit
	case "btree":
		return BTree
	case "constants":
		return Constants
	default:
		return Unknown
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s <connection string>\n", cliName)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := sqlitoy.ParseConnectionString(os.Args[1])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	logger, err := logging.New(config.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	aDB, err := sqlitoy.New(ctx, logger, config)
	if err != nil {
		fmt.Printf("Error opening database: %s\n", err)
		os.Exit(1)
	}

	// Held while a statement runs, shutdown takes it before closing the
	// database. The reader may stay blocked on stdin and is not waited for.
	mu := new(sync.Mutex)

	done := make(chan error, 1)
	go func() {
		done <- repl(ctx, aDB, mu, os.Stdin, os.Stdout)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		cancel()
		mu.Lock()
	case err := <-done:
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			exitCode = 1
		}
	}

	// Writes every cached page back to the file
	if err := aDB.Close(context.Background()); err != nil {
		fmt.Printf("Error closing database: %s\n", err)
		exitCode = 1
	}

	os.Exit(exitCode)
}

// repl reads statements line by line until .exit, end of input or ctx
// is canceled. Each line runs with mu held. It only returns an error when
// the database can no longer be used.
func repl(ctx context.Context, aDB *sqlitoy.DB, mu *sync.Mutex, r io.Reader, w io.Writer) error {
	reader := bufio.NewScanner(r)
	fmt.Fprint(w, prompt)

	// REPL (Read-eval-print loop) start
	for reader.Scan() {
		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			return nil
		}
		quit, err := evalLine(ctx, aDB, strings.TrimSpace(reader.Text()), w)
		mu.Unlock()
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		fmt.Fprint(w, prompt)
	}
	// Print an additional line if we encountered an EOF character
	fmt.Fprintln(w)

	return reader.Err()
}

// evalLine runs a meta command or a statement, quit is set for .exit.
func evalLine(ctx context.Context, aDB *sqlitoy.DB, inputBuffer string, w io.Writer) (quit bool, err error) {
	if !isMetaCommand(inputBuffer) {
		if inputBuffer == "" {
			return false, nil
		}
		return false, execute(ctx, aDB, inputBuffer, w)
	}

	switch doMetaCommand(strings.ToLower(inputBuffer[1:])) {
	case Help:
		fmt.Fprintln(w, ".help       - Show available commands")
		fmt.Fprintln(w, ".exit       - Closes program")
		fmt.Fprintln(w, ".btree      - Print the B+ tree of the table")
		fmt.Fprintln(w, ".constants  - Print node layout constants")
	case Exit:
		return true, nil
	case BTree:
		fmt.Fprintln(w, "Tree:")
		if err := aDB.PrintTree(ctx, w); err != nil {
			return false, err
		}
	case Constants:
		fmt.Fprintln(w, "Constants:")
		aDB.PrintConstants(w)
	case Unknown:
		fmt.Fprintf(w, "Unrecognized command '%s'.\n", inputBuffer)
	}
	return false, nil
}

// execute prepares and runs one statement, printing the outcome. Errors
// which leave the database usable are printed and swallowed.
func execute(ctx context.Context, aDB *sqlitoy.DB, inputBuffer string, w io.Writer) error {
	aStatement, err := aDB.Prepare(ctx, inputBuffer)
	if err != nil {
		switch {
		case errors.Is(err, statement.ErrNegativeID):
			fmt.Fprintln(w, "ID must be positive.")
		case errors.Is(err, statement.ErrStringTooLong):
			fmt.Fprintln(w, "String is too long.")
		case errors.Is(err, statement.ErrSyntax):
			fmt.Fprintf(w, "Syntax error. Could not parse statement '%s'.\n", inputBuffer)
		default:
			fmt.Fprintf(w, "Unrecognized keyword at start of '%s'.\n", inputBuffer)
		}
		return nil
	}

	aResult, err := aDB.Execute(ctx, aStatement)
	switch {
	case errors.Is(err, sqlitoy.ErrDuplicateKey):
		fmt.Fprintln(w, "Error: Duplicate key.")
		return nil
	case errors.Is(err, sqlitoy.ErrTableFull):
		fmt.Fprintln(w, "Error: Table full.")
		return nil
	case err != nil:
		return err
	}

	if aStatement.Kind == statement.Select {
		util.PrintTableHeader(w, userColumns)
		for aUser, err := range aResult.Users {
			if err != nil {
				return err
			}
			util.PrintTableRow(w, userColumns, []any{aUser.ID, aUser.Username, aUser.Email})
		}
		util.PrintTableEnd(w, userColumns)
	}
	fmt.Fprintln(w, "Executed.")

	return nil
}
