package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldclaims/fieldclaims/internal/application/service"
)

const identityKey = "identity"

// identityMiddleware resolves the caller identity from the X-User-ID and
// X-Company-ID headers set by the auth collaborator upstream. Requests
// without both headers are rejected; every operation is tenant-scoped and
// there is no anonymous access.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err1 := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		companyID, err2 := strconv.ParseInt(c.GetHeader("X-Company-ID"), 10, 64)
		if err1 != nil || err2 != nil || userID <= 0 || companyID <= 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "missing or invalid identity headers",
			})
			return
		}

		c.Set(identityKey, service.Identity{UserID: userID, CompanyID: companyID})
		c.Next()
	}
}

// identity retrieves the caller identity resolved by the middleware
func identity(c *gin.Context) service.Identity {
	return c.MustGet(identityKey).(service.Identity)
}
