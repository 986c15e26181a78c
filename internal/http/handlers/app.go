package handlers

import (
	"encoding/json"
	"net/http"

	"bananalab/internal/batch"
	"bananalab/internal/infra"
	"bananalab/internal/provider"
	"bananalab/internal/storage"
	"bananalab/internal/store"
)

// App carries the shared dependencies for all HTTP handlers.
type App struct {
	SQL       infra.SQLExecutor
	Templates *store.TemplateStore
	Jobs      *store.JobStore
	Blobs     storage.Store
	Catalog   *provider.Catalog
	Engine    batch.Engine
	Logger    infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
