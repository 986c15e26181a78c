package handlers

import "net/http"

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports dependency availability: the generation engine and the blob
// store. The worker refuses to start a batch when either is down; this
// endpoint lets operators see that before triggering one.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	providerUp := a.Engine != nil && a.Engine.Available()
	storageUp := a.Blobs != nil && a.Blobs.Available()

	code := http.StatusOK
	if !providerUp || !storageUp {
		code = http.StatusServiceUnavailable
	}
	a.json(w, code, map[string]any{
		"provider_available": providerUp,
		"storage_available":  storageUp,
	})
}
