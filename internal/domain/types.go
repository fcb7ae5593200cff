package domain

import (
	"database/sql"
	"sort"
)

// ID is used across domain entities.
type ID int64

// Required station columns of a raw trip table.
const (
	ColStartStationID   = "start station id"
	ColStartStationName = "start station name"
	ColEndStationID     = "end station id"
	ColEndStationName   = "end station name"
)

// StationColumns lists the columns every raw trip table must carry.
var StationColumns = []string{
	ColStartStationID,
	ColStartStationName,
	ColEndStationID,
	ColEndStationName,
}

// RoutesTable is the persisted aggregate table.
const RoutesTable = "most_used_routes"

// TripRecord is the station part of one raw trip row.
type TripRecord struct {
	StartStationID   string
	StartStationName string
	EndStationID     string
	EndStationName   string
}

// StationPair is an ordered (start, end) pair of station names.
type StationPair struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PairCount is the per-pair value produced by one batch.
// RouteID is only valid once the pair matched a persisted route.
type PairCount struct {
	RouteID sql.NullInt64
	Trips   int64
}

// PairCounts is the in-memory aggregate of a single batch.
type PairCounts map[StationPair]*PairCount

// TotalTrips sums the trip counts of every pair.
func (p PairCounts) TotalTrips() int64 {
	var total int64
	for _, v := range p {
		total += v.Trips
	}
	return total
}

// SortedKeys returns the pairs ordered by start then end name.
func (p PairCounts) SortedKeys() []StationPair {
	keys := make([]StationPair, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Start != keys[j].Start {
			return keys[i].Start < keys[j].Start
		}
		return keys[i].End < keys[j].End
	})
	return keys
}

// AggregateRoute is one row of most_used_routes.
type AggregateRoute struct {
	RouteID          int64  `json:"route_id"`
	StartStationName string `json:"start_station_name"`
	EndStationName   string `json:"end_station_name"`
	NumTrips         int64  `json:"num_trips"`
}

type RouteInsert struct {
	StartStationName string
	EndStationName   string
	NumTrips         int64
}

// RouteUpdate targets a route by identity, never by name.
type RouteUpdate struct {
	RouteID  int64
	NumTrips int64
}

// MutationPlan is the full set of writes for one batch.
type MutationPlan struct {
	Inserts []RouteInsert
	Updates []RouteUpdate
}

func (p MutationPlan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0
}
