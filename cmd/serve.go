package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/enrich"
	"github.com/leadflow/enrich-cli/internal/ledger"
	"github.com/leadflow/enrich-cli/internal/model"
)

var servePort int

// enricher is what the HTTP layer needs from the orchestrator.
type enricher interface {
	Enrich(ctx context.Context, orgID string, req model.EnrichmentRequest) (*model.Outcome, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		lg, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer lg.Close()

		o, err := buildOrchestrator(lg, "")
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(o, lg),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(o enricher, lg ledger.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/orgs/{orgID}/enrich", func(w http.ResponseWriter, req *http.Request) {
		orgID := chi.URLParam(req, "orgID")

		var body model.EnrichmentRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.EntityName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity_name is required"})
			return
		}

		outcome, err := o.Enrich(req.Context(), orgID, body)
		switch {
		case eris.Is(err, enrich.ErrInsufficientCredits):
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient credits"})
			return
		case eris.Is(err, ledger.ErrUnknownOrg):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown organization"})
			return
		case err != nil:
			zap.L().Error("enrichment failed",
				zap.String("org_id", orgID),
				zap.String("entity", body.EntityName),
				zap.Error(err),
			)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "enrichment failed"})
			return
		}

		writeJSON(w, http.StatusOK, outcome)
	})

	r.Get("/orgs/{orgID}/credits", func(w http.ResponseWriter, req *http.Request) {
		orgID := chi.URLParam(req, "orgID")

		balance, err := lg.Balance(req.Context(), orgID)
		switch {
		case eris.Is(err, ledger.ErrUnknownOrg):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown organization"})
			return
		case err != nil:
			zap.L().Error("balance lookup failed", zap.String("org_id", orgID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "balance lookup failed"})
			return
		}

		writeJSON(w, http.StatusOK, balance)
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
