package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"citibike/internal/domain"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	DB   *sql.DB
	dbMu sync.Mutex
)

// DSN builds the data source name for env.DBDriver unless DB_DSN is set.
func DSN(env Env) string {
	if env.DBDSN != "" {
		return env.DBDSN
	}
	switch env.DBDriver {
	case "mysql":
		port := env.DBPort
		if port == "" {
			port = "3306"
		}
		cfg := mysql.NewConfig()
		cfg.User = env.DBUser
		cfg.Passwd = env.DBPass
		cfg.Net = "tcp"
		cfg.Addr = env.DBHost + ":" + port
		cfg.DBName = env.DBName
		cfg.ParseTime = true
		cfg.Timeout = 5 * time.Second
		cfg.ReadTimeout = 30 * time.Second
		cfg.WriteTimeout = 30 * time.Second
		return cfg.FormatDSN()
	case "sqlite":
		return env.DBName + ".db"
	default:
		port := env.DBPort
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(env.DBUser, env.DBPass),
			Host:     env.DBHost + ":" + port,
			Path:     "/" + env.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	}
}

// DriverName maps DB_DRIVER to the registered database/sql driver.
func DriverName(driver string) string {
	switch driver {
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite"
	default:
		return "postgres"
	}
}

// ConnectDB initializes the shared DB connection (idempotent).
func ConnectDB(env Env) (*sql.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB, nil
	}

	db, err := sql.Open(DriverName(env.DBDriver), DSN(env))
	if err != nil {
		return nil, domain.ConnectionError{Target: "database", Err: err}
	}

	if env.DBDriver == "sqlite" {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.ConnectionError{Target: "database", Err: err}
	}

	DB = db
	log.Printf("connected to %s database %s", DriverName(env.DBDriver), env.DBName)
	return DB, nil
}

func EnsureDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB == nil {
		return domain.ConnectionError{Target: "database", Err: fmt.Errorf("not connected")}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return domain.ConnectionError{Target: "database", Err: err}
	}
	return nil
}

func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}
