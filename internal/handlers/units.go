package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/services/provisioning"
	"github.com/sventech/prodline/internal/websocket"
)

// createUnit provisions a new unit: serial, identity artifact, record
func (r *Router) createUnit(w http.ResponseWriter, req *http.Request) {
	var createReq provisioning.CreateUnitRequest
	if err := json.NewDecoder(req.Body).Decode(&createReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if createReq.ProductID == 0 {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if createReq.CreatedBy == "" {
		createReq.CreatedBy = currentUser(req)
	}

	unit, err := r.provisioning.CreateUnit(req.Context(), createReq)
	if err != nil {
		switch {
		case errors.Is(err, provisioning.ErrProductNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, provisioning.ErrAllocationExhausted):
			// Retry-safe: nothing durable happened
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	r.hub.Broadcast(websocket.Event{
		Type:   "UNIT_CREATED",
		Serial: unit.SerialNumber,
		UnitID: unit.ID,
	})

	respondJSON(w, http.StatusCreated, unit)
}

// listUnits returns units, optionally filtered by product and status
func (r *Router) listUnits(w http.ResponseWriter, req *http.Request) {
	query := r.db.Model(&models.Unit{}).Order("created_at DESC")

	if productID := req.URL.Query().Get("productId"); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if status := req.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	limit := 100
	if l, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	var units []models.Unit
	if err := query.Limit(limit).Find(&units).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch units")
		return
	}
	respondJSON(w, http.StatusOK, units)
}

// getUnit returns a single unit by ID or serial number (scan-friendly)
func (r *Router) getUnit(w http.ResponseWriter, req *http.Request) {
	key := mux.Vars(req)["id"]

	var unit models.Unit
	err := r.db.Preload("Completions").Preload("Completions.Step").
		Where("id = ? OR serial_number = ?", key, key).
		First(&unit).Error
	if err != nil {
		respondError(w, http.StatusNotFound, "Unit not found")
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

// getUnitArtifact re-renders the unit's identity artifact. Generation is
// deterministic, so this always matches the blob-store copy.
func (r *Router) getUnitArtifact(w http.ResponseWriter, req *http.Request) {
	key := mux.Vars(req)["id"]

	var unit models.Unit
	if err := r.db.Where("id = ? OR serial_number = ?", key, key).First(&unit).Error; err != nil {
		respondError(w, http.StatusNotFound, "Unit not found")
		return
	}

	png, err := r.artifacts.Generate(unit.ArtifactToken)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render artifact")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

// listProducts returns the product catalog
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	var products []models.Product
	if err := r.db.Preload("Variants").Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// listProductSteps returns the ordered step catalog of a product
func (r *Router) listProductSteps(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	var steps []models.ProductionStep
	err = r.db.Where("product_id = ?", uint(id)).Order("step_order").Find(&steps).Error
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch steps")
		return
	}
	respondJSON(w, http.StatusOK, steps)
}
