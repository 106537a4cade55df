package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/application/service"
)

// CreateClaim handles POST /api/v1/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	var in service.CreateClaimInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, claim)
}

// ListClaims handles GET /api/v1/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var filter port.ClaimFilter
	filter.Status = c.Query("status")
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	claims, err := h.claimService.List(c.Request.Context(), identity(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claims)
}

// GetClaim handles GET /api/v1/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	claim, err := h.claimService.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// UpdateClaim handles PATCH /api/v1/claims/:id
func (h *Handlers) UpdateClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.UpdateClaimInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Update(c.Request.Context(), identity(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// DeleteClaim handles DELETE /api/v1/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.claimService.Delete(c.Request.Context(), identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// ApproveClaim handles POST /api/v1/claims/:id/approve
func (h *Handlers) ApproveClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	claim, err := h.claimService.Approve(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// SubmitClaim handles POST /api/v1/claims/:id/submit
func (h *Handlers) SubmitClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.SubmitClaimInput
	_ = c.ShouldBindJSON(&in)

	claim, err := h.claimService.Submit(c.Request.Context(), identity(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// RecordPayment handles POST /api/v1/claims/:id/payments
func (h *Handlers) RecordPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.RecordPayment(c.Request.Context(), identity(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, claim)
}
