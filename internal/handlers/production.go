package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sventech/prodline/internal/services/production"
	"github.com/sventech/prodline/internal/websocket"
)

// completeStepRequest is the optional body of a step completion call
type completeStepRequest struct {
	Notes string `json:"notes"`
}

// completeStep records one production step completion for a unit
func (r *Router) completeStep(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	unitID := vars["id"]
	stepID, err := strconv.ParseUint(vars["stepId"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	var body completeStepRequest
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body) // body is optional
	}

	result, err := r.production.CompleteStep(req.Context(), unitID, uint(stepID), currentUser(req), body.Notes)
	if err != nil {
		respondProductionError(w, err)
		return
	}

	r.hub.Broadcast(websocket.Event{
		Type:   "STEP_COMPLETED",
		UnitID: unitID,
		Data:   result.Completion,
	})
	if result.UnitCompleted {
		r.hub.Broadcast(websocket.Event{
			Type:   "UNIT_COMPLETED",
			UnitID: unitID,
		})
	}

	respondJSON(w, http.StatusCreated, result)
}

// markComplete is the administrative override for the completion transition
func (r *Router) markComplete(w http.ResponseWriter, req *http.Request) {
	unitID := mux.Vars(req)["id"]

	unit, err := r.production.MarkComplete(req.Context(), unitID)
	if err != nil {
		respondProductionError(w, err)
		return
	}

	r.hub.Broadcast(websocket.Event{
		Type:   "UNIT_COMPLETED",
		Serial: unit.SerialNumber,
		UnitID: unit.ID,
	})

	respondJSON(w, http.StatusOK, unit)
}

// recordInstall appends a firmware install event, optionally completing a step
func (r *Router) recordInstall(w http.ResponseWriter, req *http.Request) {
	var installReq production.RecordInstallRequest
	if err := json.NewDecoder(req.Body).Decode(&installReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	installReq.UnitID = mux.Vars(req)["id"]
	if installReq.DeviceTypeCategory == "" || installReq.FirmwareID == "" {
		respondError(w, http.StatusBadRequest, "deviceTypeCategory and firmwareId are required")
		return
	}
	if installReq.InstalledBy == "" {
		installReq.InstalledBy = currentUser(req)
	}

	record, stepResult, err := r.production.RecordInstall(req.Context(), installReq)
	if err != nil {
		if record == nil {
			respondProductionError(w, err)
			return
		}
		// The install row is durable; only the delegated step completion
		// failed. Report both.
		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"record":              record,
			"stepCompletionError": err.Error(),
		})
		return
	}

	r.hub.Broadcast(websocket.Event{
		Type:   "FIRMWARE_INSTALLED",
		UnitID: record.UnitID,
		Data:   record,
	})
	if stepResult != nil && stepResult.UnitCompleted {
		r.hub.Broadcast(websocket.Event{
			Type:   "UNIT_COMPLETED",
			UnitID: record.UnitID,
		})
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"record":     record,
		"stepResult": stepResult,
	})
}

// firmwareHistory lists install events for a unit, newest first
func (r *Router) firmwareHistory(w http.ResponseWriter, req *http.Request) {
	history, err := r.production.FirmwareHistory(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch firmware history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// respondProductionError maps engine errors onto HTTP statuses
func respondProductionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, production.ErrUnitNotFound), errors.Is(err, production.ErrStepNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, production.ErrDuplicateCompletion):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
