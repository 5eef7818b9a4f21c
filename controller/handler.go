package controller

import (
	"encoding/json"
	"net/http"
)

// ServeHTTP writes the last snapshot as JSON. The provider query parameter
// limits the answer to one provider.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snapshot := c.Snapshot()
	if snapshot == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no inventory yet"})
		return
	}
	if name := r.URL.Query().Get("provider"); name != "" {
		filtered := Snapshot{TakenAt: snapshot.TakenAt, Providers: make([]ProviderSnapshot, 0, 1)}
		for _, ps := range snapshot.Providers {
			if ps.Name == name {
				filtered.Providers = append(filtered.Providers, ps)
			}
		}
		if len(filtered.Providers) == 0 {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown provider " + name})
			return
		}
		snapshot = &filtered
	}
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		c.Logger.Sugar().Errorw("could not write snapshot", "err", err)
	}
}
