package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ExportInvoiceJSON handles GET /api/v1/claims/:id/export/invoice
func (h *Handlers) ExportInvoiceJSON(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payload, err := h.exportService.InvoiceJSON(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payload)
}

// ExportBulkCSV handles GET /api/v1/claims/:id/export/bulk-csv
func (h *Handlers) ExportBulkCSV(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.BulkCSV(c.Request.Context(), identity(c), id, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="claim-%d-bulk.csv"`, id))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportBulkCSVBatch handles GET /api/v1/exports/bulk-csv?claim_ids=1,2,3
func (h *Handlers) ExportBulkCSVBatch(c *gin.Context) {
	raw := c.Query("claim_ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "claim_ids is required"})
		return
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "claim_ids must be positive integers"})
			return
		}
		ids = append(ids, id)
	}

	var buf bytes.Buffer
	if err := h.exportService.BulkCSVBatch(c.Request.Context(), identity(c), ids, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="claims-bulk.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportWorkbook handles GET /api/v1/claims/:id/export/workbook
func (h *Handlers) ExportWorkbook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.Workbook(c.Request.Context(), identity(c), id, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="claim-%d.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
