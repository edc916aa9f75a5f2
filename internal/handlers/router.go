package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sventech/prodline/internal/buildinfo"
	"github.com/sventech/prodline/internal/config"
	"github.com/sventech/prodline/internal/database"
	"github.com/sventech/prodline/internal/middleware"
	"github.com/sventech/prodline/internal/services/artifact"
	"github.com/sventech/prodline/internal/services/production"
	"github.com/sventech/prodline/internal/services/provisioning"
	"github.com/sventech/prodline/internal/websocket"
)

// Router wraps the mux router and the service layer
type Router struct {
	*mux.Router
	db           *database.DB
	cfg          *config.Config
	hub          *websocket.Hub
	provisioning *provisioning.Service
	production   *production.Service
	artifacts    *artifact.Generator
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(
	db *database.DB,
	cfg *config.Config,
	hub *websocket.Hub,
	prov *provisioning.Service,
	prod *production.Service,
	artifacts *artifact.Generator,
) *Router {
	r := &Router{
		Router:       mux.NewRouter(),
		db:           db,
		cfg:          cfg,
		hub:          hub,
		provisioning: prov,
		production:   prod,
		artifacts:    artifacts,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	// Units
	api.HandleFunc("/units", r.createUnit).Methods("POST")
	api.HandleFunc("/units", r.listUnits).Methods("GET")
	api.HandleFunc("/units/{id}", r.getUnit).Methods("GET")
	api.HandleFunc("/units/{id}/artifact.png", r.getUnitArtifact).Methods("GET")

	// Production steps
	api.HandleFunc("/units/{id}/steps/{stepId}/complete", r.completeStep).Methods("POST")
	api.HandleFunc("/units/{id}/complete", r.markComplete).Methods("POST")

	// Firmware
	api.HandleFunc("/units/{id}/firmware", r.recordInstall).Methods("POST")
	api.HandleFunc("/units/{id}/firmware", r.firmwareHistory).Methods("GET")

	// Catalog (read-only)
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products/{id}/steps", r.listProductSteps).Methods("GET")

	// Label printing
	api.HandleFunc("/labels", r.generateLabels).Methods("POST")

	// Websocket for line stations / dashboards
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(r.hub, w, req)
	})

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"commit":  buildinfo.CommitHash,
		"started": buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
