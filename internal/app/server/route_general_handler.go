package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"shrike/internal/app/releases"
	"shrike/internal/app/version"
	"shrike/internal/config"
)

func getGlobalSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.GetConfig())
}

func saveSettings(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		log.Error("Error decoding request body:", err)
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	config.SetConfig(newConfig)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration updated successfully"})
}

func getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func getReleases(w http.ResponseWriter, r *http.Request) {
	items, err := releases.Get(r.Context())
	if err != nil {
		log.Warn("failed to fetch releases", "error", err)
		writeError(w, "Failed to load release notes", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"releases": items,
		"build":    version.GetInfo(),
	})
}
