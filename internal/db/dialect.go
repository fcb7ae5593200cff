package db

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

func DialectFor(driver string) Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return Postgres
	}
}

// Quote quotes an identifier, so column names with spaces survive.
func (d Dialect) Quote(ident string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case Postgres:
		return pq.QuoteIdentifier(ident)
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// Rebind rewrites '?' placeholders into $n for postgres. Placeholders inside
// quoted identifiers or string literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '?':
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) textType() string {
	if d == Postgres {
		return "VARCHAR"
	}
	return "TEXT"
}

// CreateTextTableSQL builds the DDL of a staging table where every column is
// unconstrained text.
func (d Dialect) CreateTextTableSQL(table string, columns []string) string {
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, d.Quote(c)+" "+d.textType())
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(cols, ", "))
}

// CreateRoutesTableSQL builds the DDL of most_used_routes.
func (d Dialect) CreateRoutesTableSQL(table string) string {
	switch d {
	case MySQL:
		return fmt.Sprintf("CREATE TABLE %s (route_id BIGINT AUTO_INCREMENT PRIMARY KEY, start_station_name TEXT, end_station_name TEXT, num_trips BIGINT)", d.Quote(table))
	case SQLite:
		return fmt.Sprintf("CREATE TABLE %s (route_id INTEGER PRIMARY KEY AUTOINCREMENT, start_station_name TEXT, end_station_name TEXT, num_trips INTEGER)", d.Quote(table))
	default:
		return fmt.Sprintf("CREATE TABLE %s (route_id SERIAL PRIMARY KEY, start_station_name VARCHAR, end_station_name VARCHAR, num_trips INTEGER)", d.Quote(table))
	}
}

// HasTableSQL returns the existence query for a table name bound as one arg.
func (d Dialect) HasTableSQL() string {
	switch d {
	case MySQL:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ? LIMIT 1`
	case SQLite:
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1`
	default:
		return `SELECT tablename FROM pg_tables WHERE tablename = $1 LIMIT 1`
	}
}
