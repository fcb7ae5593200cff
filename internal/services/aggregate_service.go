package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	intconfig "citibike/internal/config"
	intdb "citibike/internal/db"
	"citibike/internal/domain"
	"citibike/internal/metrics"
	"citibike/internal/repositories"
	"citibike/internal/utils"
)

// BatchResult summarizes one aggregate batch.
type BatchResult struct {
	Table      string         `json:"table"`
	InsertOnly bool           `json:"insert_only"`
	Extract    ExtractStats   `json:"extract"`
	Reconcile  ReconcileStats `json:"reconcile"`
	Inserts    int            `json:"inserts"`
	Updates    int            `json:"updates"`
	Duration   time.Duration  `json:"duration_ns"`
}

// AggregateService folds one raw trip table into most_used_routes.
// Batches are serialized: a second RunBatch while one is in flight fails
// with a ConflictError instead of racing on the aggregate table.
type AggregateService struct {
	DB        *sql.DB
	Dialect   intdb.Dialect
	Policy    DuplicatePolicy
	RequestID string
	// Stores overrides the repositories bound to the pinned connection.
	Stores func(conn intdb.Conn) (TripSource, RouteStore)

	mu sync.Mutex
}

func (s *AggregateService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s *AggregateService) stores(conn intdb.Conn) (TripSource, RouteStore) {
	if s.Stores != nil {
		return s.Stores(conn)
	}
	return repositories.TripsRepository{DB: conn, Dialect: s.Dialect},
		repositories.RoutesRepository{DB: conn, Dialect: s.Dialect}
}

// RunBatch extracts station pairs from table, reconciles them against
// most_used_routes unless insertOnly, and commits the resulting plan. All
// reads and the write go through one pinned connection. An insert-only batch
// is only accepted while most_used_routes is empty.
func (s *AggregateService) RunBatch(ctx context.Context, table string, insertOnly bool) (BatchResult, error) {
	res := BatchResult{Table: table, InsertOnly: insertOnly}
	if !s.mu.TryLock() {
		return res, domain.ConflictError{Resource: "batch", Msg: "another aggregate batch is running"}
	}
	defer s.mu.Unlock()

	start := time.Now()
	mode := "merge"
	if insertOnly {
		mode = "insert_only"
	}

	var conn intdb.Conn
	if s.Stores == nil {
		pool := s.db()
		if pool == nil {
			return res, domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
		}
		c, err := pool.Conn(ctx)
		if err != nil {
			return res, domain.ConnectionError{Target: "database", Err: err}
		}
		defer c.Close()
		conn = c
	}
	trips, routes := s.stores(conn)

	err := s.run(ctx, trips, routes, &res)
	res.Duration = time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "aggregate", "batch_failed", fmt.Sprintf("table=%s mode=%s err=%v", table, mode, err))
	} else {
		metrics.RouteMutations.WithLabelValues("insert").Add(float64(res.Inserts))
		metrics.RouteMutations.WithLabelValues("update").Add(float64(res.Updates))
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "aggregate", "batch_committed", fmt.Sprintf("table=%s mode=%s rows=%d pairs=%d inserts=%d updates=%d duration=%s",
			table, mode, res.Extract.Rows, res.Extract.NamePairs, res.Inserts, res.Updates, res.Duration.Round(time.Millisecond)))
	}
	metrics.BatchDuration.WithLabelValues(mode, outcome).Observe(res.Duration.Seconds())
	return res, err
}

func (s *AggregateService) run(ctx context.Context, trips TripSource, routes RouteStore, res *BatchResult) error {
	if res.InsertOnly {
		n, err := routes.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictError{
				Resource: domain.RoutesTable,
				Msg:      fmt.Sprintf("already holds %d routes, insert-only would duplicate them; merge instead", n),
			}
		}
	}

	pairs, xstats, err := ExtractPairs(ctx, trips, res.Table)
	res.Extract = xstats
	if err != nil {
		return err
	}
	if xstats.NameConflicts > 0 {
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "aggregate", "name_conflicts", fmt.Sprintf("table=%s conflicts=%d kept=first", res.Table, xstats.NameConflicts))
	}

	if !res.InsertOnly {
		rstats, err := Reconcile(ctx, routes, pairs, s.Policy)
		res.Reconcile = rstats
		if err != nil {
			return err
		}
		if rstats.Duplicates > 0 {
			utils.LogEvent(utils.RequestID(ctx, s.RequestID), "aggregate", "duplicate_routes", fmt.Sprintf("duplicates=%d policy=%s", rstats.Duplicates, s.Policy))
		}
	}

	plan := PlanMutations(pairs, res.InsertOnly)
	if err := routes.ApplyPlan(ctx, plan); err != nil {
		return err
	}
	res.Inserts = len(plan.Inserts)
	res.Updates = len(plan.Updates)
	return nil
}
