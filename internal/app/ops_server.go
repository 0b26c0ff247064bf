package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// unitView is the JSON form of one catalog unit.
type unitView struct {
	Name       string   `json:"name"`
	Platform   string   `json:"platform"`
	EntryPoint string   `json:"entry_point"`
	Artifacts  []string `json:"artifacts"`
	Refs       []string `json:"refs,omitempty"`
}

// batchView is the JSON form of the last batch.
type batchView struct {
	ID         string            `json:"id"`
	Started    time.Time         `json:"started"`
	DurationMS int64             `json:"duration_ms"`
	Artifacts  []string          `json:"artifacts"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// opsRouter serves health, metrics, the catalog and build state.
func (a *App) opsRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.healthHandler)
	r.Handle("/metrics", a.metrics.Handler())
	r.Get("/units", a.unitsHandler)
	r.Get("/batches/latest", a.latestBatchHandler)
	r.Get("/batches", a.historyHandler)
	r.Get("/batches/{id}", a.batchUnitsHandler)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) unitsHandler(w http.ResponseWriter, _ *http.Request) {
	entries := a.catalog.Entries()
	views := make([]unitView, 0, len(entries))
	for _, e := range entries {
		v := unitView{
			Name:       e.Name,
			Platform:   e.Unit.Platform().Key(),
			EntryPoint: e.Unit.EntryPoint().Key(),
			Refs:       e.Unit.Refs(),
		}
		for _, in := range e.Unit.Inputs() {
			v.Artifacts = append(v.Artifacts, in.ArtifactName)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *App) latestBatchHandler(w http.ResponseWriter, _ *http.Request) {
	b := a.LastBatch()
	if b == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no batch has run yet"})
		return
	}
	v := batchView{
		ID:         b.ID,
		Started:    b.Started,
		DurationMS: b.Duration.Milliseconds(),
		Artifacts:  []string{},
	}
	for _, out := range b.Outputs() {
		v.Artifacts = append(v.Artifacts, out.ArtifactName)
	}
	for _, res := range b.Results {
		if res.Err != nil {
			if v.Errors == nil {
				v.Errors = map[string]string{}
			}
			v.Errors[res.Unit] = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *App) historyHandler(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "build history is disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	batches, err := a.history.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (a *App) batchUnitsHandler(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "build history is disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	units, err := a.history.Units(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(units) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown batch " + id})
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// startOpsServer runs the ops HTTP server in the background.
func (a *App) startOpsServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", port)
	a.opsServer = &http.Server{
		Addr:              addr,
		Handler:           a.opsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Ops server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeOpsServer(ctx context.Context) error {
	if a.opsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down ops server...")
	if err := a.opsServer.Shutdown(ctx); err != nil {
		a.logger.Error("Ops server shutdown failed", "error", err)
		return err
	}
	return nil
}
