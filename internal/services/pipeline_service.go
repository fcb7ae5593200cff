package services

import (
	"context"
	"fmt"

	"citibike/internal/domain"
	"citibike/internal/utils"
)

// RoutesAdmin is the table-level part of repositories.RoutesRepository.
type RoutesAdmin interface {
	EnsureTable(ctx context.Context) (bool, error)
}

type PipelineResult struct {
	History []LoadResult `json:"history"`
	Initial BatchResult  `json:"initial"`
	Staging LoadResult   `json:"staging"`
	Merge   BatchResult  `json:"merge"`
}

// PipelineService runs the full historical load followed by one
// incremental month.
type PipelineService struct {
	Ingest    IngestService
	Aggregate *AggregateService
	Routes    RoutesAdmin

	FirstMonth   int
	LastMonth    int
	HistoryTable string
	StagingTable string
	RequestID    string
}

// Run loads months [FirstMonth, LastMonth) into the history table, seeds
// most_used_routes from it, then loads LastMonth into the staging table and
// merges it in.
func (s PipelineService) Run(ctx context.Context) (PipelineResult, error) {
	var out PipelineResult
	if s.FirstMonth < 1 || s.LastMonth > 12 || s.FirstMonth >= s.LastMonth {
		return out, domain.ValidationError{Field: "months", Msg: fmt.Sprintf("need 1 <= first (%d) < last (%d) <= 12", s.FirstMonth, s.LastMonth)}
	}

	if err := s.Ingest.Store.Ping(ctx); err != nil {
		return out, err
	}

	history, err := s.Ingest.LoadMonths(ctx, s.FirstMonth, s.LastMonth, s.HistoryTable)
	out.History = history
	if err != nil {
		return out, err
	}

	initial, err := s.Seed(ctx, s.HistoryTable)
	out.Initial = initial
	if err != nil {
		return out, err
	}

	staging, err := s.Ingest.ReplaceMonth(ctx, s.LastMonth, s.StagingTable)
	out.Staging = staging
	if err != nil {
		return out, err
	}

	merge, err := s.Aggregate.RunBatch(ctx, s.StagingTable, false)
	out.Merge = merge
	if err != nil {
		return out, err
	}

	utils.LogEvent(utils.RequestID(ctx, s.RequestID), "pipeline", "done", fmt.Sprintf("history_months=%d inserted=%d merged_inserts=%d merged_updates=%d",
		len(history), initial.Inserts, merge.Inserts, merge.Updates))
	return out, nil
}

// Seed creates most_used_routes and fills it insert-only from table.
// RunBatch refuses the insert-only pass once the table has rows.
func (s PipelineService) Seed(ctx context.Context, table string) (BatchResult, error) {
	if _, err := s.Routes.EnsureTable(ctx); err != nil {
		return BatchResult{Table: table, InsertOnly: true}, err
	}
	return s.Aggregate.RunBatch(ctx, table, true)
}
