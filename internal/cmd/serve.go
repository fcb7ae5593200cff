package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	router "citibike/internal/http"
	h "citibike/internal/http/handlers"
	"citibike/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the routes API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.env.GinMode != "" {
				gin.SetMode(a.env.GinMode)
			}
			if _, err := a.routes().EnsureTable(ctx); err != nil {
				return err
			}
			ingest, err := a.ingest(ctx)
			if err != nil {
				return err
			}
			agg, err := a.aggregate()
			if err != nil {
				return err
			}
			// per-request ids come from the request context
			ingest.RequestID = ""
			agg.RequestID = ""

			if a.env.JWTSecret == "" {
				log.Printf("warning: JWT_SECRET is empty, batch endpoint is disabled")
			}

			routes := a.routes()
			r := router.NewRouter(h.API{
				Routes:  routes,
				Reports: services.ReportService{Routes: routes},
				Loader:  ingest,
				Runner:  agg,
				Admin: h.Admin{
					Username:     a.env.AdminUsername,
					PasswordHash: a.env.AdminPasswordHash,
					JWTSecret:    []byte(a.env.JWTSecret),
				},
				StagingTable: a.env.StagingTable,
			}, router.RouterOptions{CORSOrigins: a.env.CORSOrigins})

			srv := &http.Server{
				Addr:              a.env.AppAddr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       20 * time.Second,
				// batches can take minutes
				WriteTimeout: 30 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				log.Printf("server listening on %s", a.env.AppAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			log.Println("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Println("server stopped")
			return nil
		},
	}
}
