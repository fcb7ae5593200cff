package repositories

import (
	"context"
	"fmt"
	"strings"

	intconfig "citibike/internal/config"
	intdb "citibike/internal/db"
	"citibike/internal/domain"
)

// RoutesRepository owns the most_used_routes aggregate table.
type RoutesRepository struct {
	DB      intdb.Conn
	Dialect intdb.Dialect
}

func (r RoutesRepository) db() intdb.Conn {
	if r.DB != nil {
		return r.DB
	}
	if intconfig.DB != nil {
		return intconfig.DB
	}
	return nil
}

func (r RoutesRepository) table() string {
	return r.Dialect.Quote(domain.RoutesTable)
}

func (r RoutesRepository) conn() (intdb.Conn, error) {
	db := r.db()
	if db == nil {
		return nil, domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
	}
	return db, nil
}

// EnsureTable creates most_used_routes when missing and reports whether it did.
func (r RoutesRepository) EnsureTable(ctx context.Context) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	ok, err := intdb.HasTable(ctx, db, r.Dialect, domain.RoutesTable)
	if err != nil || ok {
		return false, err
	}
	if _, err := db.ExecContext(ctx, r.Dialect.CreateRoutesTableSQL(domain.RoutesTable)); err != nil {
		return false, err
	}
	return true, nil
}

// ScanRoutes streams every persisted route to fn.
func (r RoutesRepository) ScanRoutes(ctx context.Context, fn func(domain.AggregateRoute) error) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, `SELECT route_id, start_station_name, end_station_name, num_trips FROM `+r.table())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rt domain.AggregateRoute
		if err := rows.Scan(&rt.RouteID, &rt.StartStationName, &rt.EndStationName, &rt.NumTrips); err != nil {
			return err
		}
		if err := fn(rt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r RoutesRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+r.table()).Scan(&n)
	return n, err
}

// Top returns the busiest routes. A non-empty station keeps routes that start
// or end there.
func (r RoutesRepository) Top(ctx context.Context, limit int, station string) ([]domain.AggregateRoute, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	where := []string{"1=1"}
	args := []any{}
	if s := strings.TrimSpace(station); s != "" {
		where = append(where, "(start_station_name = ? OR end_station_name = ?)")
		args = append(args, s, s)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT route_id, start_station_name, end_station_name, num_trips FROM %s WHERE %s ORDER BY num_trips DESC, route_id ASC LIMIT ?`,
		r.table(), strings.Join(where, " AND "))

	rows, err := db.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AggregateRoute{}
	for rows.Next() {
		var rt domain.AggregateRoute
		if err := rows.Scan(&rt.RouteID, &rt.StartStationName, &rt.EndStationName, &rt.NumTrips); err != nil {
			return out, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ApplyPlan writes the insert batch and the update batch in one transaction.
// Either both commit or neither does.
func (r RoutesRepository) ApplyPlan(ctx context.Context, plan domain.MutationPlan) (err error) {
	db, err := r.conn()
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertSQL := r.Dialect.Rebind(`INSERT INTO ` + r.table() + ` (start_station_name, end_station_name, num_trips) VALUES (?, ?, ?)`)
	inserts := make([][]any, 0, len(plan.Inserts))
	for _, in := range plan.Inserts {
		inserts = append(inserts, []any{in.StartStationName, in.EndStationName, in.NumTrips})
	}
	if _, err = intdb.ExecBatch(ctx, tx, insertSQL, inserts); err != nil {
		return wrapWriteErr("insert", err)
	}

	updateSQL := r.Dialect.Rebind(`UPDATE ` + r.table() + ` SET num_trips = ? WHERE route_id = ?`)
	updates := make([][]any, 0, len(plan.Updates))
	for _, up := range plan.Updates {
		updates = append(updates, []any{up.NumTrips, up.RouteID})
	}
	if _, err = intdb.ExecBatch(ctx, tx, updateSQL, updates); err != nil {
		return wrapWriteErr("update", err)
	}

	if err = tx.Commit(); err != nil {
		return wrapWriteErr("commit", err)
	}
	return nil
}

func wrapWriteErr(op string, err error) error {
	if intdb.IsConstraintViolation(err) {
		return domain.ConstraintViolationError{Op: op, Err: err}
	}
	return err
}
