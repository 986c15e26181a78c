package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bananalab/pkg/zip"
)

// archiveMaxAssets caps one download bundle.
const archiveMaxAssets = 500

// AssetsArchive bundles generated renders under a storage prefix into a zip
// download, so comparison and variant sets can be pulled in one request.
func (a *App) AssetsArchive(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))
	if prefix == "" || strings.Contains(prefix, "..") {
		a.error(w, http.StatusBadRequest, "bad_request", "a valid prefix is required")
		return
	}

	keys, err := a.Blobs.ListKeys(r.Context(), prefix, archiveMaxAssets)
	if err != nil {
		a.Logger.Error().Err(err).Str("prefix", prefix).Msg("http: list assets")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}
	if len(keys) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no assets under prefix")
		return
	}

	assets := make([]zip.Asset, 0, len(keys))
	for _, key := range keys {
		data, err := a.Blobs.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", key).Msg("http: skipping unreadable asset")
			continue
		}
		assets = append(assets, zip.Asset{Filename: key, Data: data})
	}

	archive := zip.ArchiveAssets(assets)
	if len(archive) == 0 {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	filename := fmt.Sprintf("assets-%s.zip", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
