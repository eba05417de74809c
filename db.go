package sqlitoy

import (
	"context"
	"fmt"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy/internal/pkg/logging"
	"github.com/RichardKnop/sqlitoy/internal/record"
	"github.com/RichardKnop/sqlitoy/internal/statement"
	"github.com/RichardKnop/sqlitoy/internal/table"
	"github.com/RichardKnop/sqlitoy/pkg/lrucache"
)

var (
	ErrDuplicateKey = table.ErrDuplicateKey
	ErrTableFull    = table.ErrTableFull
	ErrCorruptFile  = table.ErrCorruptFile
)

const (
	DefaultMaxCachedStatements = 1000
)

type Parser interface {
	Parse(ctx context.Context, input string) (statement.Statement, error)
}

// StatementResult is the outcome of an executed statement. Users is only
// set for select statements and scans the table lazily.
type StatementResult struct {
	Kind         statement.Kind
	RowsAffected int
	Users        iter.Seq2[record.User, error]
}

// DB is a single users table stored in one file. It must not be used
// from more than one goroutine at a time.
type DB struct {
	Path      string
	table     *table.Table[record.User]
	parser    Parser
	stmtCache *lrucache.Cache[string, statement.Statement]
	logger    *zap.Logger
}

// Open parses the connection string and opens the database file,
// creating it when it does not exist.
func Open(ctx context.Context, connStr string) (*DB, error) {
	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	logConf := logging.DefaultConfig()
	logConf.Level = config.GetZapLevel()
	logger, err := logConf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return New(ctx, logger, config)
}

func New(ctx context.Context, logger *zap.Logger, config *ConnectionConfig) (*DB, error) {
	aTable, err := table.Open(ctx, logger, config.FilePath, record.UserCodec{}, table.Options{
		PageSize: config.PageSize,
		MaxPages: config.MaxPages,
	})
	if err != nil {
		return nil, err
	}

	return &DB{
		Path:      config.FilePath,
		table:     aTable,
		parser:    statement.New(),
		stmtCache: lrucache.New[string, statement.Statement](config.MaxCachedStatements),
		logger:    logger,
	}, nil
}

// Prepare parses a single statement. Parsed statements are cached by
// their input, failed ones are parsed again every time.
func (d *DB) Prepare(ctx context.Context, input string) (statement.Statement, error) {
	if aStatement, ok := d.stmtCache.Get(input); ok {
		return aStatement, nil
	}

	aStatement, err := d.parser.Parse(ctx, input)
	if err != nil {
		return aStatement, err
	}
	d.stmtCache.Put(input, aStatement)

	return aStatement, nil
}

func (d *DB) Execute(ctx context.Context, aStatement statement.Statement) (StatementResult, error) {
	aResult := StatementResult{Kind: aStatement.Kind}

	switch aStatement.Kind {
	case statement.Insert:
		if err := d.Insert(ctx, aStatement.User); err != nil {
			return aResult, err
		}
		aResult.RowsAffected = 1
	case statement.Select:
		aResult.Users = d.Select(ctx)
	default:
		return aResult, fmt.Errorf("%w: kind %d", statement.ErrUnrecognizedStatement, aStatement.Kind)
	}

	return aResult, nil
}

// Insert stores a user keyed by its ID.
func (d *DB) Insert(ctx context.Context, aUser record.User) error {
	d.logger.Sugar().With("id", aUser.ID).Debug("insert user")

	return d.table.Insert(ctx, aUser.ID, aUser)
}

func (d *DB) Find(ctx context.Context, id uint32) (record.User, bool, error) {
	return d.table.Find(ctx, id)
}

// Select returns all users ordered by ID.
func (d *DB) Select(ctx context.Context) iter.Seq2[record.User, error] {
	return d.table.SelectAll(ctx)
}

func (d *DB) Count(ctx context.Context) (int, error) {
	return d.table.Count(ctx)
}

// PrintTree writes the layout of the B+ tree nodes.
func (d *DB) PrintTree(ctx context.Context, w io.Writer) error {
	return d.table.Tree().PrintTree(ctx, w)
}

// PrintConstants writes the sizes and capacities of the node layout.
func (d *DB) PrintConstants(w io.Writer) {
	d.table.Tree().PrintConstants(w)
}

// Close writes all pages to the file and closes it.
func (d *DB) Close(ctx context.Context) error {
	return d.table.Close(ctx)
}
