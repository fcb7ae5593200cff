package cmd

import (
	"context"
	"database/sql"

	intconfig "citibike/internal/config"
	intdb "citibike/internal/db"
	"citibike/internal/objectstore"
	"citibike/internal/repositories"
	"citibike/internal/services"
	"citibike/internal/utils"
)

// app holds what every command shares for one run.
type app struct {
	env       intconfig.Env
	db        *sql.DB
	dialect   intdb.Dialect
	requestID string
}

func setup(ctx context.Context) (*app, error) {
	env, err := intconfig.LoadEnv(configFile)
	if err != nil {
		return nil, err
	}
	db, err := intconfig.ConnectDB(env)
	if err != nil {
		return nil, err
	}
	a := &app{
		env:       env,
		db:        db,
		dialect:   intdb.DialectFor(env.DBDriver),
		requestID: utils.NewRequestID(),
	}
	utils.LogEvent(a.requestID, "cli", "start", "driver="+string(a.dialect))
	return a, nil
}

func (a *app) close() {
	intconfig.CloseDB()
}

func (a *app) routes() repositories.RoutesRepository {
	return repositories.RoutesRepository{DB: a.db, Dialect: a.dialect}
}

func (a *app) ingest(ctx context.Context) (services.IngestService, error) {
	store, err := objectstore.New(a.env)
	if err != nil {
		return services.IngestService{}, err
	}
	if err := store.Ping(ctx); err != nil {
		return services.IngestService{}, err
	}
	return services.IngestService{
		Store:     store,
		Staging:   repositories.StagingRepository{DB: a.db, Dialect: a.dialect},
		KeyFormat: a.env.KeyFormat,
		RequestID: a.requestID,
	}, nil
}

func (a *app) aggregate() (*services.AggregateService, error) {
	policy, err := services.ParseDuplicatePolicy(a.env.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return &services.AggregateService{
		DB:        a.db,
		Dialect:   a.dialect,
		Policy:    policy,
		RequestID: a.requestID,
	}, nil
}
