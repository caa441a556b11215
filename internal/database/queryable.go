package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Queryable is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
// Stores accept this so callers decide whether an operation runs inside
// a transaction.
type Queryable interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...any) (sql.Result, error)
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}

var (
	_ Queryable = (*sqlx.DB)(nil)
	_ Queryable = (*sqlx.Tx)(nil)
)
