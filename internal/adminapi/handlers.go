package adminapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duskresolve/duskresolve/internal/store"
)

type handler struct {
	store *store.Store
}

// createRecordRequest is the JSON body for POST /admin/record.
type createRecordRequest struct {
	Name       string  `json:"name" binding:"required"`
	Type       string  `json:"type" binding:"required"`
	TTL        uint32  `json:"ttl"`
	RData      string  `json:"rdata" binding:"required"`
	Preference *uint16 `json:"preference"`
}

type recordResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	TTL        uint32  `json:"ttl"`
	RData      string  `json:"rdata"`
	Preference *uint16 `json:"preference,omitempty"`
}

func toResponse(rec store.ManualRecord) recordResponse {
	return recordResponse{
		ID:         rec.ID,
		Name:       rec.Name,
		Type:       rec.Type,
		TTL:        rec.TTL,
		RData:      rec.RData,
		Preference: rec.Preference,
	}
}

// CreateRecord handles POST /admin/record: validation is entirely
// delegated to internal/store.Insert (spec.md §4.8).
func (h *handler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	rec, err := h.store.Insert(store.ManualRecord{
		Name:       req.Name,
		Type:       req.Type,
		TTL:        req.TTL,
		RData:      req.RData,
		Preference: req.Preference,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(rec))
}

// ListRecords handles GET /admin/records.
func (h *handler) ListRecords(c *gin.Context) {
	recs, err := h.store.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}

// DeleteRecord handles DELETE /admin/record/{domain}: removes every
// manual record for the given name, across all types.
func (h *handler) DeleteRecord(c *gin.Context) {
	domain := c.Param("domain")
	if domain == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "domain is required"})
		return
	}

	if err := h.store.DeleteByName(domain); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
