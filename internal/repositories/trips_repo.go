package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "citibike/internal/config"
	intdb "citibike/internal/db"
	"citibike/internal/domain"
)

// TripsRepository reads raw trip tables.
type TripsRepository struct {
	DB      intdb.Conn
	Dialect intdb.Dialect
}

func (r TripsRepository) db() intdb.Conn {
	if r.DB != nil {
		return r.DB
	}
	if intconfig.DB != nil {
		return intconfig.DB
	}
	return nil
}

// ScanTrips streams the station columns of every row of table to fn, using
// one forward-only cursor. NULL values come through as empty strings.
func (r TripsRepository) ScanTrips(ctx context.Context, table string, fn func(domain.TripRecord) error) error {
	db := r.db()
	if db == nil {
		return domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
	}
	d := r.Dialect
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s`,
		d.Quote(domain.ColStartStationID),
		d.Quote(domain.ColStartStationName),
		d.Quote(domain.ColEndStationID),
		d.Quote(domain.ColEndStationName),
		d.Quote(table),
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	var startID, startName, endID, endName sql.NullString
	for rows.Next() {
		if err := rows.Scan(&startID, &startName, &endID, &endName); err != nil {
			return err
		}
		rec := domain.TripRecord{
			StartStationID:   startID.String,
			StartStationName: startName.String,
			EndStationID:     endID.String,
			EndStationName:   endName.String,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountTrips returns the number of rows in table.
func (r TripsRepository) CountTrips(ctx context.Context, table string) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
	}
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.Dialect.Quote(table))).Scan(&n)
	return n, err
}
