package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-collect/numisync/internal/enrichnote"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing records and enrichment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(chimiddleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/records", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			records, err := env.Store.All(req.Context(), store.Filter{
				Country:    q.Get("country"),
				Unenriched: q.Get("unenriched") == "true",
				Limit:      limit,
			})
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Get("/records/{id}", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := loadRecord(w, req, env)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		// Candidate preview: scored search results without any writes.
		r.Get("/records/{id}/preview", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := loadRecord(w, req, env)
			if !ok {
				return
			}
			candidates, err := env.Pipeline.SearchCandidates(req.Context(), *rec)
			if err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"record":     rec.ID,
				"candidates": candidates,
			})
		})

		r.Get("/cache/stats", func(w http.ResponseWriter, _ *http.Request) {
			stats := env.Cache.GetStats()
			usage := env.Cache.MonthlyUsage()
			writeJSON(w, http.StatusOK, map[string]any{
				"path":         stats.Path,
				"entries":      stats.Entries,
				"monthlyUsage": usage.PerEndpoint,
				"monthlyTotal": usage.Total,
				"monthlyLimit": env.Cache.MonthlyLimit(),
			})
		})

		r.Get("/records/{id}/status", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := loadRecord(w, req, env)
			if !ok {
				return
			}
			codec := enrichnote.NewCodec()
			_, meta := codec.Decode(rec.Note)
			writeJSON(w, http.StatusOK, map[string]any{
				"record":           rec.ID,
				"catalogId":        rec.CatalogID,
				"overall":          enrichnote.Overall(meta, true, cfg.Enrich.FetchPricing),
				"pricingFreshness": codec.PricingFreshness(meta),
				"sections":         meta,
			})
		})

		r.Post("/records/{id}/enrich", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
				return
			}

			// Run enrichment asynchronously; the rate limiter makes a
			// synchronous response arbitrarily slow.
			go func() {
				res, err := env.Pipeline.Enrich(ctx, id)
				if err != nil {
					zap.L().Error("server enrichment failed",
						zap.Int64("record", id),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("server enrichment complete",
					zap.Int64("record", id),
					zap.Int("catalog_id", res.CatalogID),
					zap.Bool("needs_review", res.NeedsReview),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]any{
				"status": "accepted",
				"record": id,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func loadRecord(w http.ResponseWriter, req *http.Request, env *enrichEnv) (*model.Record, bool) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
		return nil, false
	}
	rec, err := env.Store.GetByID(req.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return nil, false
	}
	return rec, true
}
