package sqlitoy

import (
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/RichardKnop/sqlitoy/internal/record"
)

var userColumns = []string{"id", "username", "email"}

type Rows struct {
	columns []string
	users   []record.User
	pos     int
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return r.columns
}

// Close closes the rows iterator.
func (r *Rows) Close() error {
	r.users = nil
	return nil
}

// Next is called to populate the next row of data into
// the provided slice. The provided slice will be the same
// size as the Columns() are wide.
//
// Next should return io.EOF when there are no more rows.
func (r *Rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.users) {
		return io.EOF
	}

	if len(dest) != len(r.columns) {
		return fmt.Errorf("expected %d values, got %d", len(r.columns), len(dest))
	}

	aUser := r.users[r.pos]
	r.pos += 1

	dest[0] = int64(aUser.ID)
	dest[1] = aUser.Username
	dest[2] = aUser.Email

	return nil
}
