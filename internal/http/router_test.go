package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	intdb "citibike/internal/db"
	"citibike/internal/domain"
	h "citibike/internal/http/handlers"
	"citibike/internal/http/middleware"
	"citibike/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

type fakeRoutes struct {
	routes  []domain.AggregateRoute
	err     error
	limit   int
	station string
}

func (f *fakeRoutes) Top(ctx context.Context, limit int, station string) ([]domain.AggregateRoute, error) {
	f.limit, f.station = limit, station
	return f.routes, f.err
}

func (f *fakeRoutes) Count(ctx context.Context) (int64, error) {
	return int64(len(f.routes)), f.err
}

type fakeReports struct{}

func (fakeReports) TopRoutesPDF(ctx context.Context, limit int, station string) ([]byte, string, error) {
	return []byte("%PDF-1.3 test"), "MOST_USED_ROUTES_20180801_0930.pdf", nil
}

type fakeLoader struct {
	month int
	table string
	err   error
}

func (f *fakeLoader) ReplaceMonth(ctx context.Context, month int, table string) (services.LoadResult, error) {
	f.month, f.table = month, table
	return services.LoadResult{Table: table, Fragments: 1, Rows: 3}, f.err
}

type fakeRunner struct {
	table      string
	insertOnly bool
	calls      int
	err        error
}

func (f *fakeRunner) RunBatch(ctx context.Context, table string, insertOnly bool) (services.BatchResult, error) {
	f.calls++
	f.table, f.insertOnly = table, insertOnly
	return services.BatchResult{Table: table, InsertOnly: insertOnly, Inserts: 1, Updates: 1}, f.err
}

type testAPI struct {
	routes *fakeRoutes
	loader *fakeLoader
	runner *fakeRunner
	engine *gin.Engine
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	ta := testAPI{
		routes: &fakeRoutes{routes: []domain.AggregateRoute{{RouteID: 7, StartStationName: "S1", EndStationName: "S2", NumTrips: 5}}},
		loader: &fakeLoader{},
		runner: &fakeRunner{},
	}
	ta.engine = NewRouter(h.API{
		Routes:       ta.routes,
		Reports:      fakeReports{},
		Loader:       ta.loader,
		Runner:       ta.runner,
		Admin:        h.Admin{Username: "admin", PasswordHash: string(hash), JWTSecret: testSecret},
		StagingTable: "trip_fact_stg",
	}, RouterOptions{})
	return ta
}

func (ta testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	w := newTestAPI(t).do("GET", "/api/health", "", "")
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestTopRoutes(t *testing.T) {
	ta := newTestAPI(t)
	w := ta.do("GET", "/api/routes?limit=5&station=S1", "", "")
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ta.routes.limit != 5 || ta.routes.station != "S1" {
		t.Fatalf("query not forwarded: %d %q", ta.routes.limit, ta.routes.station)
	}
	routes, _ := decode(t, w)["routes"].([]any)
	if len(routes) != 1 {
		t.Fatalf("expected one route, got %v", routes)
	}
	first := routes[0].(map[string]any)
	if first["route_id"].(float64) != 7 || first["num_trips"].(float64) != 5 {
		t.Fatalf("unexpected route payload %v", first)
	}
}

func TestTopRoutes_CapsAndValidatesLimit(t *testing.T) {
	ta := newTestAPI(t)
	if w := ta.do("GET", "/api/routes?limit=100000", "", ""); w.Code != stdhttp.StatusOK || ta.routes.limit != 500 {
		t.Fatalf("expected limit capped at 500, got %d (%d)", ta.routes.limit, w.Code)
	}
	if w := ta.do("GET", "/api/routes?limit=abc", "", ""); w.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTopRoutes_ConnectionFailure(t *testing.T) {
	ta := newTestAPI(t)
	ta.routes.err = domain.ConnectionError{Target: "database", Err: errors.New("refused")}
	w := ta.do("GET", "/api/routes", "", "")
	if w.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if decode(t, w)["code"] != "connection_failure" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestTopRoutesReport(t *testing.T) {
	w := newTestAPI(t).do("GET", "/api/routes/report", "", "")
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "MOST_USED_ROUTES_20180801_0930.pdf") {
		t.Fatalf("missing file name: %q", w.Header().Get("Content-Disposition"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := newTestAPI(t).do("GET", "/metrics", "", "")
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected go collector output")
	}
}

func TestNoRoute(t *testing.T) {
	if w := newTestAPI(t).do("GET", "/api/nope", "", ""); w.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func login(t *testing.T, ta testAPI) string {
	t.Helper()
	w := ta.do("POST", "/api/auth/login", `{"username":"admin","password":"s3cret"}`, "")
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("empty token")
	}
	return token
}

func TestLogin_WrongPassword(t *testing.T) {
	w := newTestAPI(t).do("POST", "/api/auth/login", `{"username":"admin","password":"nope"}`, "")
	if w.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateBatch_RequiresToken(t *testing.T) {
	ta := newTestAPI(t)
	if w := ta.do("POST", "/api/batches", `{"month":7}`, ""); w.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := ta.do("POST", "/api/batches", `{"month":7}`, "garbage"); w.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
	if ta.runner.calls != 0 {
		t.Fatalf("batch must not run without auth")
	}
}

func TestCreateBatch_RequiresAdminRole(t *testing.T) {
	ta := newTestAPI(t)
	token, err := middleware.IssueToken(testSecret, "viewer", "viewer", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := ta.do("POST", "/api/batches", `{"month":7}`, token); w.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCreateBatch_LoadsThenMerges(t *testing.T) {
	ta := newTestAPI(t)
	token := login(t, ta)

	w := ta.do("POST", "/api/batches", `{"month":7}`, token)
	if w.Code != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if ta.loader.month != 7 || ta.loader.table != "trip_fact_stg" {
		t.Fatalf("loader got month=%d table=%q", ta.loader.month, ta.loader.table)
	}
	if ta.runner.table != "trip_fact_stg" || ta.runner.insertOnly {
		t.Fatalf("runner got table=%q insertOnly=%v", ta.runner.table, ta.runner.insertOnly)
	}
	body := decode(t, w)
	if body["load"] == nil || body["batch"] == nil {
		t.Fatalf("expected load and batch summaries, got %v", body)
	}
}

func TestCreateBatch_SkipsLoadForMonthZero(t *testing.T) {
	ta := newTestAPI(t)
	token := login(t, ta)

	w := ta.do("POST", "/api/batches", `{"month":0,"table":"trip_fact","insert_only":true}`, token)
	if w.Code != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if ta.loader.month != 0 {
		t.Fatalf("loader must not run for month 0")
	}
	if ta.runner.table != "trip_fact" || !ta.runner.insertOnly {
		t.Fatalf("runner got table=%q insertOnly=%v", ta.runner.table, ta.runner.insertOnly)
	}
}

func TestCreateBatch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		load   error
		run    error
		body   string
		status int
	}{
		{"bad month", nil, nil, `{"month":13}`, stdhttp.StatusBadRequest},
		{"empty body", nil, nil, "", stdhttp.StatusBadRequest},
		{"missing archive", domain.SourceUnavailableError{Key: "201807-citibike-tripdata.csv.zip"}, nil, `{"month":7}`, stdhttp.StatusBadGateway},
		{"concurrent batch", nil, domain.ConflictError{Resource: "batch", Msg: "busy"}, `{"month":0}`, stdhttp.StatusConflict},
		{"constraint", nil, domain.ConstraintViolationError{Op: "insert", Err: errors.New("not null")}, `{"month":0}`, stdhttp.StatusConflict},
		{"unknown", nil, errors.New("boom"), `{"month":0}`, stdhttp.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestAPI(t)
			token := login(t, ta)
			ta.loader.err = tc.load
			ta.runner.err = tc.run
			if w := ta.do("POST", "/api/batches", tc.body, token); w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

type tripRows []domain.TripRecord

func (t tripRows) ScanTrips(ctx context.Context, table string, fn func(domain.TripRecord) error) error {
	for _, rec := range t {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

type seededRoutes struct {
	rows    []domain.AggregateRoute
	applied int
}

func (s *seededRoutes) ScanRoutes(ctx context.Context, fn func(domain.AggregateRoute) error) error {
	for _, rt := range s.rows {
		if err := fn(rt); err != nil {
			return err
		}
	}
	return nil
}

func (s *seededRoutes) Count(ctx context.Context) (int64, error) { return int64(len(s.rows)), nil }

func (s *seededRoutes) ApplyPlan(ctx context.Context, plan domain.MutationPlan) error {
	s.applied++
	return nil
}

func TestCreateBatch_InsertOnlyOnSeededTableConflicts(t *testing.T) {
	ta := newTestAPI(t)
	routes := &seededRoutes{rows: []domain.AggregateRoute{{RouteID: 7, StartStationName: "S1", EndStationName: "S2", NumTrips: 5}}}
	trips := tripRows{{StartStationID: "1", StartStationName: "S1", EndStationID: "2", EndStationName: "S2"}}
	agg := &services.AggregateService{Stores: func(intdb.Conn) (services.TripSource, services.RouteStore) {
		return trips, routes
	}}
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	ta.engine = NewRouter(h.API{
		Routes:       ta.routes,
		Reports:      fakeReports{},
		Loader:       ta.loader,
		Runner:       agg,
		Admin:        h.Admin{Username: "admin", PasswordHash: string(hash), JWTSecret: testSecret},
		StagingTable: "trip_fact_stg",
	}, RouterOptions{})
	token := login(t, ta)

	w := ta.do("POST", "/api/batches", `{"month":0,"table":"trip_fact","insert_only":true}`, token)
	if w.Code != stdhttp.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if routes.applied != 0 {
		t.Fatalf("insert-only batch must not touch a seeded table")
	}

	// the same table merges fine
	if w := ta.do("POST", "/api/batches", `{"month":0,"table":"trip_fact"}`, token); w.Code != stdhttp.StatusCreated {
		t.Fatalf("expected 201 for merge, got %d: %s", w.Code, w.Body.String())
	}
	if routes.applied != 1 {
		t.Fatalf("expected one applied plan, got %d", routes.applied)
	}
}
