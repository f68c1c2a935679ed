package adminapi

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the three record-management routes spec.md §6
// names, guarded by requireAPIKey when apiKey is non-empty.
func RegisterRoutes(r *gin.Engine, h *handler, apiKey string) {
	admin := r.Group("/admin")
	if apiKey != "" {
		admin.Use(requireAPIKey(apiKey))
	}

	admin.POST("/record", h.CreateRecord)
	admin.GET("/records", h.ListRecords)
	admin.DELETE("/record/:domain", h.DeleteRecord)
}
