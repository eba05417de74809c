package sqlitoy

type Result struct {
	lastInsertID int64
	rowsAffected int64
}

// LastInsertId returns the ID of the user stored by an insert
// statement, zero for other statements.
func (r Result) LastInsertId() (int64, error) {
	return r.lastInsertID, nil
}

// RowsAffected returns the number of rows affected by the
// query.
func (r Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
