package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"bananalab/internal/provider"
	"bananalab/internal/store"
)

type stubSQL struct {
	row      SimpleRow
	rows     pgx.Rows
	rowsErr  error
	execErr  error
	queries  []string
	lastArgs []any
}

func (s *stubSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return s.row
}

func (s *stubSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return s.rows, s.rowsErr
}

type stubEngine struct{ available bool }

func (e *stubEngine) Generate(ctx context.Context, req provider.GenerationRequest) provider.GenerationResult {
	return provider.GenerationResult{}
}

func (e *stubEngine) Available() bool { return e.available }

type stubBlobs struct {
	available bool
	keys      []string
	objects   map[string][]byte
}

func (b *stubBlobs) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (b *stubBlobs) Read(ctx context.Context, key string) ([]byte, error) {
	return b.objects[key], nil
}

func (b *stubBlobs) PublicURL(key string) string { return "https://blobs.test/" + key }

func (b *stubBlobs) ListKeys(ctx context.Context, prefix string, limit int) ([]string, error) {
	var out []string
	for _, k := range b.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *stubBlobs) Available() bool { return b.available }

func newTestApp(sql *stubSQL) *App {
	return &App{
		SQL:       sql,
		Templates: store.NewTemplateStore(sql),
		Jobs:      store.NewJobStore(sql),
		Blobs:     &stubBlobs{available: true},
		Catalog:   provider.NewCatalog(),
		Engine:    &stubEngine{available: true},
		Logger:    zerolog.New(io.Discard),
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestStatusReportsHealthyDependencies(t *testing.T) {
	app := newTestApp(&stubSQL{})

	rec := httptest.NewRecorder()
	app.Status(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["provider_available"] != true || body["storage_available"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestStatusDegradedWhenProviderDown(t *testing.T) {
	app := newTestApp(&stubSQL{})
	app.Engine = &stubEngine{available: false}

	rec := httptest.NewRecorder()
	app.Status(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["provider_available"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestModelsExcludesHiddenEntries(t *testing.T) {
	app := newTestApp(&stubSQL{})

	rec := httptest.NewRecorder()
	app.Models(rec, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected items in body, got %v", body)
	}
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["id"] == provider.EditModelID {
			t.Fatalf("hidden edit model leaked into listing")
		}
		if _, ok := item["price_1k"]; !ok {
			t.Fatalf("entry missing price_1k: %v", item)
		}
	}
}
