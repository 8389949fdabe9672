package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"shrike/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Allow any origin
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass the request to the next handler
		next.ServeHTTP(w, r)
	})
}

func OpenRoutes(port int) error {

	router := http.NewServeMux()
	router.HandleFunc("POST /register", registerUser)
	router.HandleFunc("POST /login", loginUser)
	router.Handle("GET /checkLogin", auth.RequireAuth(http.HandlerFunc(checkLogin)))

	router.Handle("POST /checkIp", auth.RequireAuth(http.HandlerFunc(checkIp)))
	router.Handle("POST /refreshIp", auth.IsAdmin(http.HandlerFunc(refreshIp)))
	router.Handle("POST /reviewIp", auth.RequireAuth(http.HandlerFunc(reviewIp)))
	router.Handle("GET /getIpProfile/{address}", auth.RequireAuth(http.HandlerFunc(getIpProfile)))
	router.Handle("GET /getIpProfilePage/{page}", auth.RequireAuth(http.HandlerFunc(getIpProfilePage)))

	router.Handle("GET /getGlobalSettings", auth.IsAdmin(http.HandlerFunc(getGlobalSettings)))
	router.Handle("POST /saveSettings", auth.IsAdmin(http.HandlerFunc(saveSettings)))

	router.HandleFunc("GET /version", getVersion)
	router.HandleFunc("GET /getReleases", getReleases)

	log.Debug("Routes opened")

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: enableCORS(router),
	}

	log.Infof("Starting shrike backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
