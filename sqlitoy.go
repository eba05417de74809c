package sqlitoy

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/RichardKnop/sqlitoy/internal/pkg/logging"
	"github.com/RichardKnop/sqlitoy/internal/record"
	"github.com/RichardKnop/sqlitoy/internal/statement"
)

const (
	driverName = "sqlitoy"
)

var (
	ErrTxNotSupported   = errors.New("transactions are not supported")
	errArgsNotSupported = errors.New("query arguments not yet supported")
)

func init() {
	sql.Register(driverName, &Driver{})
}

// Driver implements the database/sql/driver.Driver interface.
// Connections to the same file share one DB.
type Driver struct {
	mu        sync.Mutex
	databases map[string]*sharedDB
}

type sharedDB struct {
	mu   sync.Mutex
	db   *DB
	refs int
}

// Open returns a new connection to the database.
// The name is a connection string, see ParseConnectionString.
func (d *Driver) Open(name string) (driver.Conn, error) {
	config, err := ParseConnectionString(name)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.databases == nil {
		d.databases = make(map[string]*sharedDB)
	}

	shared, exists := d.databases[config.FilePath]
	if !exists {
		logConf := logging.DefaultConfig()
		logConf.Level = config.GetZapLevel()
		logger, err := logConf.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		db, err := New(context.Background(), logger, config)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		shared = &sharedDB{db: db}
		d.databases[config.FilePath] = shared
	}
	shared.refs += 1

	return &Conn{
		driver: d,
		path:   config.FilePath,
		shared: shared,
	}, nil
}

// release closes the DB once its last connection is closed.
func (d *Driver) release(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	shared, exists := d.databases[path]
	if !exists {
		return nil
	}

	shared.refs -= 1
	if shared.refs > 0 {
		return nil
	}
	delete(d.databases, path)

	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.db.Close(context.Background())
}

// Conn implements the database/sql/driver.Conn interface.
type Conn struct {
	driver *Driver
	path   string
	shared *sharedDB
	mu     sync.Mutex
	closed bool
}

func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return driver.ErrBadConn
	}
	return nil
}

// Close releases the connection, the database file is flushed and
// closed together with the last connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.driver.release(c.path)
}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext returns a prepared statement, bound to this connection.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	aStatement, err := c.shared.db.Prepare(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	return &Stmt{
		conn:      c,
		statement: aStatement,
	}, nil
}

// Begin starts and returns a new transaction.
//
// Deprecated: Drivers should implement ConnBeginTx instead (or additionally).
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx always fails, every statement is applied on its own.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, ErrTxNotSupported
}

// ExecContext executes a query that doesn't return rows.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if len(args) > 0 {
		return nil, errArgsNotSupported
	}

	aStatement, err := c.shared.db.Prepare(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	return c.exec(ctx, aStatement)
}

// QueryContext executes a query that may return rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, errArgsNotSupported
	}

	aStatement, err := c.shared.db.Prepare(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	return c.query(ctx, aStatement)
}

func (c *Conn) exec(ctx context.Context, aStatement statement.Statement) (Result, error) {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	aResult, err := c.shared.db.Execute(ctx, aStatement)
	if err != nil {
		return Result{}, err
	}

	if aStatement.Kind == statement.Insert {
		return Result{
			lastInsertID: int64(aStatement.User.ID),
			rowsAffected: int64(aResult.RowsAffected),
		}, nil
	}
	return Result{}, nil
}

// query collects all rows while holding the lock, the scan must not
// interleave with inserts from other connections.
func (c *Conn) query(ctx context.Context, aStatement statement.Statement) (*Rows, error) {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	aResult, err := c.shared.db.Execute(ctx, aStatement)
	if err != nil {
		return nil, err
	}

	users := []record.User{}
	if aResult.Users != nil {
		for aUser, err := range aResult.Users {
			if err != nil {
				return nil, err
			}
			users = append(users, aUser)
		}
	}

	return &Rows{
		columns: userColumns,
		users:   users,
	}, nil
}

// Ensure interfaces are implemented
var _ driver.Driver = (*Driver)(nil)
var _ driver.Conn = (*Conn)(nil)
var _ driver.Pinger = (*Conn)(nil)
var _ driver.ConnPrepareContext = (*Conn)(nil)
var _ driver.ConnBeginTx = (*Conn)(nil)
var _ driver.ExecerContext = (*Conn)(nil)
var _ driver.QueryerContext = (*Conn)(nil)
