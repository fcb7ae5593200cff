package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Conn is satisfied by *sql.DB and *sql.Conn, so a batch can pin a single
// connection while ad-hoc callers use the pool.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func HasTable(ctx context.Context, q Conn, d Dialect, table string) (bool, error) {
	var name sql.NullString
	err := q.QueryRowContext(ctx, d.HasTableSQL(), table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name.Valid && name.String != "", nil
}

// TableColumns lists the columns of an existing table in declaration order.
func TableColumns(ctx context.Context, q Conn, d Dialect, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", d.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// IsConstraintViolation reports integrity and data-type failures raised by any
// of the supported drivers.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		return class == "23" || class == "22"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1264, 1366, 1406, 1451, 1452:
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
