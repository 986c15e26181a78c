package handlers

import "net/http"

// Models lists the selectable catalog entries with their tiered prices.
// Hidden entries (the edit capability model) are excluded.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	items := make([]map[string]any, 0)
	for _, m := range a.Catalog.Models() {
		if m.Hidden {
			continue
		}
		items = append(items, map[string]any{
			"id":             m.ID,
			"name":           m.Name,
			"provider":       m.Provider,
			"capabilities":   m.Capabilities,
			"max_resolution": m.MaxResolution,
			"aspect_ratios":  m.AspectRatios,
			"price_1k":       a.Catalog.UnitCost(m.ID, "1K"),
			"price_2k":       a.Catalog.UnitCost(m.ID, "2K"),
			"price_4k":       a.Catalog.UnitCost(m.ID, "4K"),
			"quality_score":  m.QualityScore,
			"default":        m.Default,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
