package repositories

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	intdb "citibike/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var stagingHeader = []string{"tripduration", "start station id", "start station name", "end station id", "end station name"}

func TestStagingLoad_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := StagingRepository{DB: db, Dialect: intdb.SQLite}
	ctx := context.Background()

	created, err := repo.EnsureTable(ctx, "trip_fact", stagingHeader)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsureTable(ctx, "trip_fact", stagingHeader)
	require.NoError(t, err)
	assert.False(t, created)

	cols, err := repo.Columns(ctx, "trip_fact")
	require.NoError(t, err)
	assert.Equal(t, stagingHeader, cols)

	// more rows than one page
	var b strings.Builder
	rows := loadPageSize + 7
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,%d,Station %d,1,Home\n", i, i%5, i%5)
	}
	n, err := repo.Load(ctx, "trip_fact", stagingHeader, csv.NewReader(strings.NewReader(b.String())))
	require.NoError(t, err)
	assert.Equal(t, int64(rows), n)

	count, err := TripsRepository{DB: db, Dialect: intdb.SQLite}.CountTrips(ctx, "trip_fact")
	require.NoError(t, err)
	assert.Equal(t, int64(rows), count)
}

func TestStagingLoad_BadRowRollsBack(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := StagingRepository{DB: db, Dialect: intdb.SQLite}
	ctx := context.Background()
	_, err = repo.EnsureTable(ctx, "trip_fact", stagingHeader)
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader("1,1,A,2,B\n2,1,A\n"))
	_, err = repo.Load(ctx, "trip_fact", stagingHeader, r)
	assert.True(t, errors.Is(err, csv.ErrFieldCount), "got %v", err)

	count, err := TripsRepository{DB: db, Dialect: intdb.SQLite}.CountTrips(ctx, "trip_fact")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStagingLoad_PostgresUsesCopy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"start station id", "start station name"}
	mock.ExpectBegin()
	cp := mock.ExpectPrepare(regexp.QuoteMeta(pq.CopyIn("trip_fact_stg", cols...)))
	cp.ExpectExec().WithArgs("72", "W 52 St & 11 Ave").WillReturnResult(sqlmock.NewResult(0, 1))
	cp.ExpectExec().WithArgs("79", "Franklin St").WillReturnResult(sqlmock.NewResult(0, 1))
	cp.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := StagingRepository{DB: db, Dialect: intdb.Postgres}
	n, err := repo.Load(context.Background(), "trip_fact_stg", cols,
		csv.NewReader(strings.NewReader("72,W 52 St & 11 Ave\n79,Franklin St\n")))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStagingTruncate_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := StagingRepository{DB: db, Dialect: intdb.SQLite}
	ctx := context.Background()

	// missing table is a no-op
	require.NoError(t, repo.Truncate(ctx, "trip_fact_stg"))

	_, err = repo.EnsureTable(ctx, "trip_fact_stg", stagingHeader)
	require.NoError(t, err)
	_, err = repo.Load(ctx, "trip_fact_stg", stagingHeader, csv.NewReader(strings.NewReader("1,1,A,2,B\n2,2,B,1,A\n")))
	require.NoError(t, err)

	require.NoError(t, repo.Truncate(ctx, "trip_fact_stg"))

	count, err := TripsRepository{DB: db, Dialect: intdb.SQLite}.CountTrips(ctx, "trip_fact_stg")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	cols, err := repo.Columns(ctx, "trip_fact_stg")
	require.NoError(t, err)
	assert.Equal(t, stagingHeader, cols)
}
