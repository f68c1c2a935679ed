package adminapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorResponse is the JSON body returned on any failure, matching the
// teacher's models.ErrorResponse shape.
type errorResponse struct {
	Error string `json:"error"`
}

// requireAPIKey enforces a shared-secret X-API-Key header, a direct port
// of the teacher's middleware.RequireAPIKey.
func requireAPIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if expected == "" || got == expected {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
}
