package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	unitService   service.UnitEntryService
	claimService  service.ClaimService
	exportService service.ExportService
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	unitService service.UnitEntryService,
	claimService service.ClaimService,
	exportService service.ExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		unitService:   unitService,
		claimService:  claimService,
		exportService: exportService,
		logger:        logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{"status": "healthy"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// CreateUnit handles POST /api/v1/units
func (h *Handlers) CreateUnit(c *gin.Context) {
	var in service.CreateUnitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	unit, err := h.unitService.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, unit)
}

// BatchCreateUnits handles POST /api/v1/units/batch
func (h *Handlers) BatchCreateUnits(c *gin.Context) {
	var in struct {
		Units []service.CreateUnitInput `json:"units"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	units, err := h.unitService.BatchCreate(c.Request.Context(), identity(c), in.Units)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, units)
}

// ListUnits handles GET /api/v1/units
func (h *Handlers) ListUnits(c *gin.Context) {
	var filter port.UnitFilter
	filter.Status = c.Query("status")
	filter.JobID, _ = strconv.ParseInt(c.Query("job_id"), 10, 64)
	filter.ClaimID, _ = strconv.ParseInt(c.Query("claim_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	units, err := h.unitService.List(c.Request.Context(), identity(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, units)
}

// GetUnit handles GET /api/v1/units/:id
func (h *Handlers) GetUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	unit, err := h.unitService.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}

// DeleteUnit handles DELETE /api/v1/units/:id
func (h *Handlers) DeleteUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)

	if err := h.unitService.Delete(c.Request.Context(), identity(c), id, in.Reason); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// SubmitUnit handles POST /api/v1/units/:id/submit
func (h *Handlers) SubmitUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	unit, err := h.unitService.Submit(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}

// VerifyUnit handles POST /api/v1/units/:id/verify
func (h *Handlers) VerifyUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)

	unit, err := h.unitService.Verify(c.Request.Context(), identity(c), id, in.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}

// ApproveUnit handles POST /api/v1/units/:id/approve
func (h *Handlers) ApproveUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)

	unit, err := h.unitService.Approve(c.Request.Context(), identity(c), id, in.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}

// DisputeUnit handles POST /api/v1/units/:id/dispute
func (h *Handlers) DisputeUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Reason   string `json:"reason"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	unit, err := h.unitService.Dispute(c.Request.Context(), identity(c), id, in.Reason, in.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}

// ResolveDispute handles POST /api/v1/units/:id/dispute/resolve
func (h *Handlers) ResolveDispute(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.ResolveDisputeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	unit, err := h.unitService.ResolveDispute(c.Request.Context(), identity(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, unit)
}
