package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/services/printer"
)

// labelsRequest selects the units and layout for a printable label sheet
type labelsRequest struct {
	UnitIDs []string            `json:"unitIds"`
	Layout  printer.SheetConfig `json:"layout"`
}

// generateLabels renders a PDF sheet of QR labels for provisioned units
func (r *Router) generateLabels(w http.ResponseWriter, req *http.Request) {
	var labelsReq labelsRequest
	if err := json.NewDecoder(req.Body).Decode(&labelsReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(labelsReq.UnitIDs) == 0 {
		respondError(w, http.StatusBadRequest, "unitIds is required")
		return
	}

	var units []models.Unit
	if err := r.db.Where("id IN ?", labelsReq.UnitIDs).Find(&units).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch units")
		return
	}
	if len(units) != len(labelsReq.UnitIDs) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("found %d of %d units", len(units), len(labelsReq.UnitIDs)))
		return
	}

	labels := make([]printer.Label, 0, len(units))
	for _, unit := range units {
		labels = append(labels, printer.Label{
			Payload: r.artifacts.Payload(unit.ArtifactToken),
			Caption: unit.SerialNumber,
		})
	}

	pdfBytes, err := printer.GenerateLabelsPDF(labels, labelsReq.Layout)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"unit_labels.pdf\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}
