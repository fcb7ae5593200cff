package handlers

import (
	"context"

	"citibike/internal/domain"
	"citibike/internal/services"
)

type RoutesReader interface {
	Top(ctx context.Context, limit int, station string) ([]domain.AggregateRoute, error)
	Count(ctx context.Context) (int64, error)
}

type ReportRenderer interface {
	TopRoutesPDF(ctx context.Context, limit int, station string) ([]byte, string, error)
}

// MonthLoader replaces a staging table's rows with one month of trips.
type MonthLoader interface {
	ReplaceMonth(ctx context.Context, month int, table string) (services.LoadResult, error)
}

type BatchRunner interface {
	RunBatch(ctx context.Context, table string, insertOnly bool) (services.BatchResult, error)
}

// Admin is the single account allowed to trigger batches.
type Admin struct {
	Username     string
	PasswordHash string
	JWTSecret    []byte
}

// API bundles what the route handlers depend on.
type API struct {
	Routes       RoutesReader
	Reports      ReportRenderer
	Loader       MonthLoader
	Runner       BatchRunner
	Admin        Admin
	StagingTable string
}
