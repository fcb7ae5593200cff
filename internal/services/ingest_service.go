package services

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"citibike/internal/domain"
	"citibike/internal/metrics"
	"citibike/internal/objectstore"
	"citibike/internal/repositories"
	"citibike/internal/utils"
)

// StagingStore is the part of repositories.StagingRepository ingest needs.
type StagingStore interface {
	EnsureTable(ctx context.Context, table string, header []string) (bool, error)
	Columns(ctx context.Context, table string) ([]string, error)
	Load(ctx context.Context, table string, columns []string, src repositories.RowReader) (int64, error)
	Truncate(ctx context.Context, table string) error
}

type LoadResult struct {
	Key       string `json:"key"`
	Table     string `json:"table"`
	Fragments int    `json:"fragments"`
	Skipped   int    `json:"skipped"`
	Rows      int64  `json:"rows"`
	Replaced  bool   `json:"replaced"`
}

// IngestService loads monthly trip archives into raw trip tables.
type IngestService struct {
	Store     objectstore.Store
	Staging   StagingStore
	KeyFormat string
	RequestID string
}

const utf8BOM = "\ufeff"

type fragment struct {
	name string
	open func() (io.ReadCloser, error)
}

// Key returns the object key holding month's trips.
func (s IngestService) Key(month int) string {
	return fmt.Sprintf(s.KeyFormat, month)
}

// LoadMonth fetches the archive for month and appends every CSV fragment in
// it to table. A fragment with an unusable header is skipped; the month fails
// with SourceUnavailableError when no fragment loads.
func (s IngestService) LoadMonth(ctx context.Context, month int, table string) (LoadResult, error) {
	return s.load(ctx, month, table, false)
}

// ReplaceMonth is LoadMonth into an emptied table, so that table holds month
// alone. Use it for the table a merge batch reads: a merge counts every row
// of its table, and a retried load must not stage the month twice.
func (s IngestService) ReplaceMonth(ctx context.Context, month int, table string) (LoadResult, error) {
	return s.load(ctx, month, table, true)
}

func (s IngestService) load(ctx context.Context, month int, table string, replace bool) (LoadResult, error) {
	key := s.Key(month)
	res := LoadResult{Key: key, Table: table, Replaced: replace}

	body, err := s.Store.Fetch(ctx, key)
	if err != nil {
		return res, err
	}

	frags, err := fragments(key, body)
	if err != nil {
		return res, domain.SourceUnavailableError{Key: key, Err: err}
	}

	if replace {
		if err := s.Staging.Truncate(ctx, table); err != nil {
			return res, err
		}
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "ingest", "truncate_table", fmt.Sprintf("key=%s table=%s", key, table))
	}

	for _, f := range frags {
		n, err := s.loadFragment(ctx, table, f)
		if err != nil {
			if domain.IsSchemaMismatch(err) {
				res.Skipped++
				metrics.FragmentsSkipped.Inc()
				utils.LogEvent(utils.RequestID(ctx, s.RequestID), "ingest", "skip_fragment", err.Error())
				continue
			}
			return res, err
		}
		res.Fragments++
		res.Rows += n
		metrics.TripsLoaded.WithLabelValues(table).Add(float64(n))
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "ingest", "fragment_loaded", fmt.Sprintf("key=%s fragment=%s table=%s rows=%d", key, f.name, table, n))
	}

	if res.Fragments == 0 {
		return res, domain.SourceUnavailableError{Key: key, Err: errors.New("no loadable fragment")}
	}
	return res, nil
}

// LoadMonths loads months [first, last) in order and stops at the first
// failure.
func (s IngestService) LoadMonths(ctx context.Context, first, last int, table string) ([]LoadResult, error) {
	out := []LoadResult{}
	for month := first; month < last; month++ {
		res, err := s.LoadMonth(ctx, month, table)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s IngestService) loadFragment(ctx context.Context, table string, f fragment) (int64, error) {
	rc, err := f.open()
	if err != nil {
		return 0, domain.SchemaMismatchError{Fragment: f.name, Msg: "cannot open: " + err.Error()}
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && string(lead) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, domain.SchemaMismatchError{Fragment: f.name, Msg: "empty fragment"}
		}
		return 0, domain.SchemaMismatchError{Fragment: f.name, Msg: "unreadable header: " + err.Error()}
	}
	header = cleanHeader(header)

	if missing := missingColumns(header, domain.StationColumns); len(missing) > 0 {
		return 0, domain.SchemaMismatchError{Fragment: f.name, Missing: missing}
	}

	created, err := s.Staging.EnsureTable(ctx, table, header)
	if err != nil {
		return 0, err
	}
	if created {
		utils.LogEvent(utils.RequestID(ctx, s.RequestID), "ingest", "create_table", fmt.Sprintf("table=%s columns=%d", table, len(header)))
	} else {
		cols, err := s.Staging.Columns(ctx, table)
		if err != nil {
			return 0, err
		}
		if !sameColumns(cols, header) {
			return 0, domain.SchemaMismatchError{Fragment: f.name, Msg: fmt.Sprintf("header does not match columns of %s", table)}
		}
	}

	n, err := s.Staging.Load(ctx, table, header, reader)
	if err != nil {
		if errors.Is(err, csv.ErrFieldCount) {
			return 0, domain.SchemaMismatchError{Fragment: f.name, Msg: err.Error()}
		}
		return 0, err
	}
	return n, nil
}

// fragments lists the CSV members of a zip archive, or the body itself when
// it is not an archive.
func fragments(key string, body []byte) ([]fragment, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return []fragment{{
				name: key,
				open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil },
			}}, nil
		}
		return nil, err
	}

	out := []fragment{}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasPrefix(zf.Name, "__MACOSX/") || strings.HasPrefix(path.Base(zf.Name), ".") {
			continue
		}
		zf := zf
		out = append(out, fragment{name: key + "/" + zf.Name, open: zf.Open})
	}
	if len(out) == 0 {
		return nil, errors.New("archive has no files")
	}
	return out, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func missingColumns(header, required []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	missing := []string{}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
