package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/audit"
	"github.com/archway-labs/scout-cli/internal/engine"
	"github.com/archway-labs/scout-cli/internal/enrich"
	"github.com/archway-labs/scout-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScout(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API routes.
func newRouter(env *scoutEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/discover", func(w http.ResponseWriter, req *http.Request) {
		var dreq model.DiscoveryRequest
		if err := json.NewDecoder(req.Body).Decode(&dreq); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if dreq.Purpose == "" && dreq.Field == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "purpose or field is required"})
			return
		}

		started := time.Now()
		result, err := env.Engine.Discover(req.Context(), dreq)
		if err != nil {
			if eris.Is(err, engine.ErrNoStrategies) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
				return
			}
			zap.L().Error("discover request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "discovery failed"})
			return
		}

		result.Records = enrich.Publications(req.Context(), env.Crossref, result.Records)

		audit.Record(req.Context(), env.Audit, uuid.NewString(), "discover", dreq, &audit.RecordedResult{
			Strategy: result.StrategyUsed,
			Degraded: result.Degraded,
			Records:  result.Records,
		}, started)

		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/api/crawl", func(w http.ResponseWriter, req *http.Request) {
		var creq model.InstitutionCrawlRequest
		if err := json.NewDecoder(req.Body).Decode(&creq); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if creq.InstitutionName == "" && creq.ListURL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "institution_name or list_url is required"})
			return
		}
		if creq.Limit <= 0 {
			creq.Limit = cfg.Fetch.CrawlLimit
		}

		started := time.Now()
		records, err := env.Crawler.Crawl(req.Context(), creq)
		if err != nil {
			zap.L().Error("crawl request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "crawl failed"})
			return
		}

		records = enrich.Publications(req.Context(), env.Crossref, records)

		audit.Record(req.Context(), env.Audit, uuid.NewString(), "crawl", creq, &audit.RecordedResult{
			Records: records,
		}, started)

		writeJSON(w, http.StatusOK, map[string]any{"records": records})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
