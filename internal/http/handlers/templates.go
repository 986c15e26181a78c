package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bananalab/internal/domain"
)

type templateCreateRequest struct {
	DisplayName  string  `json:"display_name"`
	Category     string  `json:"category"`
	PromptText   string  `json:"prompt_text"`
	QualityScore float64 `json:"quality_score"`
}

// TemplateCreate inserts a template with null completion markers, so the
// next preview batch picks it up.
func (a *App) TemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req templateCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.DisplayName == "" || req.Category == "" || req.PromptText == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "display_name, category and prompt_text are required")
		return
	}
	if _, ok := domain.CategoryAspectRatios[req.Category]; !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown category")
		return
	}

	id, err := a.Templates.Insert(r.Context(), domain.Template{
		DisplayName:  req.DisplayName,
		Category:     req.Category,
		PromptText:   req.PromptText,
		QualityScore: req.QualityScore,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: insert template")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create template")
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"id": id})
}

// TemplatesPending lists templates still waiting on a preview, so operators
// can size a batch before triggering it.
func (a *App) TemplatesPending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = n
	}

	pending, err := a.Templates.SelectPendingPreviews(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: select pending previews")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load templates")
		return
	}
	total, err := a.Templates.CountPendingPreviews(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: count pending previews")
		a.error(w, http.StatusInternalServerError, "internal", "failed to count templates")
		return
	}

	items := make([]map[string]any, 0, len(pending))
	for _, t := range pending {
		items = append(items, map[string]any{
			"id":           t.ID,
			"display_name": t.DisplayName,
			"category":     t.Category,
			"created_at":   t.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "pending_total": total})
}
