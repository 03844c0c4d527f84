// Command api serves a read-only JSON view of the store: scored events,
// event detail, top scores and pipeline runs. All /api routes require the
// X-API-Key header.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/marketmole/polymarket-data/store"
	"github.com/marketmole/polymarket-data/utils/config"
	"github.com/marketmole/polymarket-data/utils/logging"
)

type apiServer struct {
	store  *store.Store
	apiKey string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 8*time.Second)
}

func safeKeyEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := 0; i < len(a); i++ {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

func (s *apiServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if !safeKeyEq(key, s.apiKey) {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (s *apiServer) getEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	q := store.ScoredEventsQuery{
		MinVolume: parseFloatDefault(r.URL.Query().Get("min_volume"), 0),
		MinScore:  atoiDefault(r.URL.Query().Get("min_score"), 0),
		Limit:     atoiDefault(r.URL.Query().Get("limit"), 100),
		Offset:    atoiDefault(r.URL.Query().Get("offset"), 0),
	}
	if q.Limit < 1 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	events, err := s.store.ListScoredEvents(ctx, q)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *apiServer) getEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	rec, err := s.store.GetEvent(ctx, id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeErr(w, http.StatusNotFound, "event not found")
		return
	}
	scores, err := s.store.EventScores(ctx, id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"event": rec, "scores": scores}
	if rec.Raw.Valid {
		resp["raw"] = json.RawMessage(rec.Raw.RawMessage)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) getTopScores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	if limit < 1 || limit > 500 {
		limit = 20
	}
	events, err := s.store.TopScores(ctx, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *apiServer) getRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func main() {
	logger := logging.NewComponent("api")
	cfg := config.Load()
	if cfg.APIKey == "" {
		logger.Error("API_KEY must be set")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	server := &apiServer{store: st, apiKey: cfg.APIKey}

	r := mux.NewRouter()

	// Public
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Protected
	r.HandleFunc("/api/events", server.authenticate(server.getEvents)).Methods("GET")
	r.HandleFunc("/api/events/{id}", server.authenticate(server.getEvent)).Methods("GET")
	r.HandleFunc("/api/scores/top", server.authenticate(server.getTopScores)).Methods("GET")
	r.HandleFunc("/api/runs", server.authenticate(server.getRuns)).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-API-Key"}),
	)
	h := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, cors(r)))

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api starting", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api stopped", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("api stopped")
}
