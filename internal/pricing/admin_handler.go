package pricing

import (
	"net/http"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/middleware"
	"github.com/chalosawari/chalo-sawari/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles admin HTTP requests for pricing management
type AdminHandler struct {
	service *Service
}

// NewAdminHandler creates a new pricing admin handler
func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// getAdminID extracts the authenticated admin user ID from the request context
func getAdminID(c *gin.Context) uuid.UUID {
	if id, ok := c.Get("user_id"); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

// RegisterRoutes registers pricing admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/pricing")
	{
		p.GET("", h.List)
		p.POST("", h.Create)
		p.POST("/bulk", h.BulkUpsert)
		p.GET("/:id", h.Get)
		p.PUT("/:id", h.Update)
		p.DELETE("/:id", h.Delete)
		p.POST("/:id/backfill", h.Backfill)
	}
}

func (h *AdminHandler) List(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := ListFilter{
		Category:        fare.Category(c.Query("category")),
		VehicleType:     c.Query("vehicle_type"),
		TripType:        fare.TripType(c.Query("trip_type")),
		IncludeInactive: c.Query("include_inactive") == "true",
	}
	if filter.Category != "" && !filter.Category.Valid() {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid category")
		return
	}
	if filter.TripType != "" && !filter.TripType.Valid() {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid trip_type")
		return
	}

	records, total, err := h.service.ListRecords(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "Failed to fetch pricing records")
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, records, meta)
}

func (h *AdminHandler) Create(c *gin.Context) {
	var req CreatePricingRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	rec, err := h.service.CreateRecord(c.Request.Context(), &req, getAdminID(c))
	if err != nil {
		respondError(c, err, "Failed to create pricing record")
		return
	}
	common.CreatedResponse(c, rec)
}

func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	rec, err := h.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch pricing record")
		return
	}
	common.SuccessResponse(c, rec)
}

func (h *AdminHandler) Update(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	var req UpdatePricingRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	rec, err := h.service.UpdateRecord(c.Request.Context(), id, &req, getAdminID(c))
	if err != nil {
		respondError(c, err, "Failed to update pricing record")
		return
	}
	common.SuccessResponse(c, rec)
}

func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteRecord(c.Request.Context(), id, getAdminID(c)); err != nil {
		respondError(c, err, "Failed to delete pricing record")
		return
	}
	common.SuccessResponse(c, gin.H{"message": "Pricing record deactivated"})
}

func (h *AdminHandler) BulkUpsert(c *gin.Context) {
	var req BulkUpsertRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	result := h.service.BulkUpsert(c.Request.Context(), &req, getAdminID(c))
	common.SuccessResponse(c, result)
}

func (h *AdminHandler) Backfill(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	rec, changed, err := h.service.BackfillRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to backfill pricing record")
		return
	}
	common.SuccessResponse(c, gin.H{"record": rec, "changed": changed})
}

func parseRecordID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid pricing record ID")
		return uuid.Nil, false
	}
	return id, true
}
