package sqlitoy

import (
	"context"
	"database/sql/driver"

	"github.com/RichardKnop/sqlitoy/internal/statement"
)

type Stmt struct {
	conn      *Conn
	statement statement.Statement
}

// Close closes the statement.
func (s Stmt) Close() error {
	return nil
}

// NumInput returns the number of placeholder parameters,
// statements never have any.
func (s Stmt) NumInput() int {
	return 0
}

// Exec executes a query that doesn't return rows, such
// as an INSERT.
//
// Deprecated: Drivers should implement StmtExecContext instead (or additionally).
func (s Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) > 0 {
		return nil, errArgsNotSupported
	}

	return s.conn.exec(context.Background(), s.statement)
}

// Query executes a query that may return rows, such as a
// SELECT.
//
// Deprecated: Drivers should implement StmtQueryContext instead (or additionally).
func (s Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, errArgsNotSupported
	}

	return s.conn.query(context.Background(), s.statement)
}
