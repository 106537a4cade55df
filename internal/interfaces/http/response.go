package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// respondError maps domain errors onto HTTP statuses. Eligibility failures
// carry their id partition in details so the caller can fix the request.
func respondError(c *gin.Context, err error) {
	var elig *entity.EligibilityError
	if errors.As(err, &elig) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "one or more unit entries are not claimable",
			Details: gin.H{
				"not_found":       elig.NotFound,
				"not_approved":    elig.NotApproved,
				"already_claimed": elig.AlreadyClaimed,
			},
		})
		return
	}

	switch {
	case entity.IsValidation(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case entity.IsPrecondition(err):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, entity.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "forbidden"})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
	default:
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}
