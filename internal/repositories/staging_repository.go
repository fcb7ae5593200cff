package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	intconfig "citibike/internal/config"
	intdb "citibike/internal/db"
	"citibike/internal/domain"

	"github.com/lib/pq"
)

// loadPageSize bounds the parameter tuples handed to one ExecBatch call.
const loadPageSize = 1000

// RowReader is satisfied by *csv.Reader.
type RowReader interface {
	Read() ([]string, error)
}

// StagingRepository bootstraps raw trip tables and bulk loads rows into them.
type StagingRepository struct {
	DB      intdb.Conn
	Dialect intdb.Dialect
}

func (r StagingRepository) db() (intdb.Conn, error) {
	if r.DB != nil {
		return r.DB, nil
	}
	if intconfig.DB != nil {
		return intconfig.DB, nil
	}
	return nil, domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
}

// EnsureTable creates table with one text column per header entry unless it
// already exists. It reports whether the table was created.
func (r StagingRepository) EnsureTable(ctx context.Context, table string, header []string) (bool, error) {
	db, err := r.db()
	if err != nil {
		return false, err
	}
	ok, err := intdb.HasTable(ctx, db, r.Dialect, table)
	if err != nil || ok {
		return false, err
	}
	if _, err := db.ExecContext(ctx, r.Dialect.CreateTextTableSQL(table, header)); err != nil {
		return false, err
	}
	return true, nil
}

func (r StagingRepository) Columns(ctx context.Context, table string) ([]string, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}
	return intdb.TableColumns(ctx, db, r.Dialect, table)
}

// Truncate empties table. A table that does not exist yet is left alone.
func (r StagingRepository) Truncate(ctx context.Context, table string) error {
	db, err := r.db()
	if err != nil {
		return err
	}
	ok, err := intdb.HasTable(ctx, db, r.Dialect, table)
	if err != nil || !ok {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM `+r.Dialect.Quote(table))
	return err
}

// Load copies every remaining row of src into table in one transaction and
// returns the number of rows written. Postgres uses COPY; the other dialects
// fall back to paged batched inserts.
func (r StagingRepository) Load(ctx context.Context, table string, columns []string, src RowReader) (n int64, err error) {
	db, err := r.db()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.Dialect == intdb.Postgres {
		n, err = copyIn(ctx, tx, table, columns, src)
	} else {
		n, err = insertPaged(ctx, tx, r.Dialect, table, columns, src)
	}
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func copyIn(ctx context.Context, tx *sql.Tx, table string, columns []string, src RowReader) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for {
		row, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, toArgs(row)...); err != nil {
			return n, err
		}
		n++
	}
	// flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func insertPaged(ctx context.Context, tx *sql.Tx, d intdb.Dialect, table string, columns []string, src RowReader) (int64, error) {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		marks[i] = "?"
	}
	query := d.Rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		d.Quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))

	var n int64
	page := make([][]any, 0, loadPageSize)
	flush := func() error {
		if len(page) == 0 {
			return nil
		}
		if _, err := intdb.ExecBatch(ctx, tx, query, page); err != nil {
			return err
		}
		n += int64(len(page))
		page = page[:0]
		return nil
	}

	for {
		row, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		page = append(page, toArgs(row))
		if len(page) == loadPageSize {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := flush(); err != nil {
		return n, err
	}
	return n, nil
}

func toArgs(row []string) []any {
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	return args
}
