package db

import (
	"context"
	"database/sql"
)

// ExecBatch applies one statement template to every parameter tuple inside
// tx. The template is prepared once. The caller owns commit and rollback.
func ExecBatch(ctx context.Context, tx *sql.Tx, query string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var affected int64
	for _, args := range rows {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return affected, err
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}
