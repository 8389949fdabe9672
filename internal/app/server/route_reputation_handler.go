package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"shrike/internal/api/dto"
	"shrike/internal/auth"
	"shrike/internal/config"
	"shrike/internal/database"
	"shrike/internal/providers/ipapi"
	"shrike/internal/refresh"
)

func reputationEngine() *refresh.Engine {
	cfg := config.GetConfig()
	client := ipapi.NewClientWith(cfg.Provider.BaseURL, time.Duration(cfg.Provider.Timeout)*time.Second)
	return refresh.NewEngine(database.IPProfileStore{}, client)
}

func parseIPRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req dto.IPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return "", false
	}

	address := strings.TrimSpace(req.IP)
	if address == "" {
		writeError(w, "Missing ip", http.StatusBadRequest)
		return "", false
	}
	if net.ParseIP(address) == nil {
		writeError(w, "Invalid ip", http.StatusBadRequest)
		return "", false
	}

	return address, true
}

// checkIp records the observed address and re-evaluates its verdict when the
// stored one is stale. The returned profile reflects any refresh that ran.
func checkIp(w http.ResponseWriter, r *http.Request) {
	address, ok := parseIPRequest(w, r)
	if !ok {
		return
	}

	if _, err := database.EnsureIPProfile(r.Context(), address); err != nil {
		log.Error("Failed to ensure ip profile", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, err := reputationEngine().AutoRefresh(r.Context(), address); err != nil {
		log.Error("Failed to refresh ip profile", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profile, err := database.GetIPProfileByAddress(r.Context(), address)
	if err != nil || profile == nil {
		log.Error("Failed to reload ip profile", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// refreshIp forces a re-evaluation regardless of how fresh the stored verdict
// is. Review protection does not apply here.
func refreshIp(w http.ResponseWriter, r *http.Request) {
	address, ok := parseIPRequest(w, r)
	if !ok {
		return
	}

	summary, err := reputationEngine().ForceRefresh(r.Context(), address)
	if err != nil {
		log.Error("Failed to force refresh", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		writeError(w, "Unknown ip", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// reviewIp lets a moderator confirm the current safe verdict, shielding it
// from automatic refresh for the protection window.
func reviewIp(w http.ResponseWriter, r *http.Request) {
	reviewer, err := auth.GetUserEmailFromRequest(r)
	if err != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	address, ok := parseIPRequest(w, r)
	if !ok {
		return
	}

	profile, err := database.MarkIPProfileReviewed(r.Context(), address, reviewer, time.Now().UTC())
	if err != nil {
		log.Error("Failed to mark ip reviewed", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, "Only safe verdicts can be reviewed", http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func getIpProfile(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.PathValue("address"))
	if address == "" {
		writeError(w, "Missing address", http.StatusBadRequest)
		return
	}

	profile, err := database.GetIPProfileByAddress(r.Context(), address)
	if err != nil {
		log.Error("Failed to load ip profile", "address", address, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, "Unknown ip", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func getIpProfilePage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeError(w, "Invalid page", http.StatusBadRequest)
		return
	}

	pageSize := 0
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageSize = parsed
		}
	}

	profiles, total, err := database.GetIPProfilePage(r.Context(), page, pageSize)
	if err != nil {
		log.Error("Failed to load ip profile page", "page", page, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if pageSize <= 0 {
		pageSize = len(profiles)
	}

	writeJSON(w, http.StatusOK, dto.IPProfilePage{
		Profiles: profiles,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}
