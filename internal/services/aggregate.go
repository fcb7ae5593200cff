package services

import (
	"context"
	"fmt"
	"strings"

	"citibike/internal/domain"
)

// TripSource scans a raw trip table with one forward-only cursor.
type TripSource interface {
	ScanTrips(ctx context.Context, table string, fn func(domain.TripRecord) error) error
}

// RouteSource scans the persisted aggregate table.
type RouteSource interface {
	ScanRoutes(ctx context.Context, fn func(domain.AggregateRoute) error) error
}

// RouteCounter reports how many routes are persisted.
type RouteCounter interface {
	Count(ctx context.Context) (int64, error)
}

// RouteWriter applies a mutation plan as one unit of work.
type RouteWriter interface {
	ApplyPlan(ctx context.Context, plan domain.MutationPlan) error
}

type RouteStore interface {
	RouteSource
	RouteCounter
	RouteWriter
}

type ExtractStats struct {
	Rows          int64 `json:"rows"`
	IDPairs       int   `json:"id_pairs"`
	NamePairs     int   `json:"name_pairs"`
	NameConflicts int   `json:"name_conflicts"`
}

type idPair struct {
	start, end string
}

// ExtractPairs counts trips per ordered station-name pair in one scan of
// table. Counting is keyed by station id; ids resolve to the first name seen
// for them, and id pairs resolving to the same names are summed.
func ExtractPairs(ctx context.Context, src TripSource, table string) (domain.PairCounts, ExtractStats, error) {
	var stats ExtractStats
	counts := map[idPair]int64{}
	names := map[string]string{}

	remember := func(id, name string) {
		prev, ok := names[id]
		if !ok {
			names[id] = name
			return
		}
		if prev != name {
			stats.NameConflicts++
		}
	}

	err := src.ScanTrips(ctx, table, func(rec domain.TripRecord) error {
		counts[idPair{rec.StartStationID, rec.EndStationID}]++
		remember(rec.StartStationID, rec.StartStationName)
		remember(rec.EndStationID, rec.EndStationName)
		stats.Rows++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	out := make(domain.PairCounts, len(counts))
	for ids, n := range counts {
		key := domain.StationPair{Start: names[ids.start], End: names[ids.end]}
		if pc, ok := out[key]; ok {
			pc.Trips += n
			continue
		}
		out[key] = &domain.PairCount{Trips: n}
	}

	stats.IDPairs = len(counts)
	stats.NamePairs = len(out)
	return out, stats, nil
}

// DuplicatePolicy decides what happens when most_used_routes holds more than
// one row for the same station pair.
type DuplicatePolicy int

const (
	// DuplicateLastWins keeps the identity and count of the last row scanned.
	DuplicateLastWins DuplicatePolicy = iota
	// DuplicateError aborts reconciliation on the first duplicate.
	DuplicateError
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_wins", "last-wins":
		return DuplicateLastWins, nil
	case "error":
		return DuplicateError, nil
	default:
		return DuplicateLastWins, domain.ValidationError{Field: "duplicate_policy", Msg: fmt.Sprintf("unknown duplicate policy %q", s)}
	}
}

func (p DuplicatePolicy) String() string {
	if p == DuplicateError {
		return "error"
	}
	return "last_wins"
}

type ReconcileStats struct {
	Scanned    int `json:"scanned"`
	Matched    int `json:"matched"`
	Duplicates int `json:"duplicates"`
}

// Reconcile joins pairs against the persisted routes on the exact station
// name pair. Matched pairs get the route identity and the persisted count
// added on top of the batch count. Persisted routes missing from pairs are
// ignored. When several persisted routes share a pair, the last one scanned
// wins and their counts are not summed; DuplicateError rejects the batch.
func Reconcile(ctx context.Context, src RouteSource, pairs domain.PairCounts, policy DuplicatePolicy) (ReconcileStats, error) {
	var stats ReconcileStats
	batch := map[domain.StationPair]int64{}

	err := src.ScanRoutes(ctx, func(rt domain.AggregateRoute) error {
		stats.Scanned++
		key := domain.StationPair{Start: rt.StartStationName, End: rt.EndStationName}
		pc, ok := pairs[key]
		if !ok {
			return nil
		}

		base, seen := batch[key]
		if seen {
			stats.Duplicates++
			if policy == DuplicateError {
				return domain.ConflictError{
					Resource: domain.RoutesTable,
					Msg:      fmt.Sprintf("routes %d and %d share station pair (%s, %s)", pc.RouteID.Int64, rt.RouteID, key.Start, key.End),
				}
			}
		} else {
			base = pc.Trips
			batch[key] = base
			stats.Matched++
		}

		pc.RouteID.Int64 = rt.RouteID
		pc.RouteID.Valid = true
		pc.Trips = base + rt.NumTrips
		return nil
	})
	return stats, err
}

// PlanMutations partitions pairs into inserts and updates. In insertOnly mode
// every pair is an insert. Both lists are ordered by station pair.
func PlanMutations(pairs domain.PairCounts, insertOnly bool) domain.MutationPlan {
	plan := domain.MutationPlan{
		Inserts: []domain.RouteInsert{},
		Updates: []domain.RouteUpdate{},
	}
	for _, key := range pairs.SortedKeys() {
		pc := pairs[key]
		if insertOnly || !pc.RouteID.Valid {
			plan.Inserts = append(plan.Inserts, domain.RouteInsert{
				StartStationName: key.Start,
				EndStationName:   key.End,
				NumTrips:         pc.Trips,
			})
			continue
		}
		plan.Updates = append(plan.Updates, domain.RouteUpdate{
			RouteID:  pc.RouteID.Int64,
			NumTrips: pc.Trips,
		})
	}
	return plan
}
