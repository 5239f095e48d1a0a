package vehicles

import (
	"net/http"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/middleware"
	"github.com/chalosawari/chalo-sawari/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the vehicle directory
type Handler struct {
	service *Service
}

// NewHandler creates a new vehicles handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public vehicle routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	v := rg.Group("/vehicles")
	{
		v.GET("", h.List)
		v.GET("/:id", h.Get)
	}
}

// RegisterAdminRoutes registers vehicle management routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/vehicles", h.Register)
}

// List returns vehicles
func (h *Handler) List(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := ListFilter{
		Category:    fare.Category(c.Query("category")),
		VehicleType: c.Query("vehicle_type"),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid category")
		return
	}

	vehicles, total, err := h.service.List(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list vehicles")
		return
	}
	common.SuccessResponseWithMeta(c, vehicles, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// Get returns one vehicle
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid vehicle ID")
		return
	}

	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get vehicle")
		return
	}
	common.SuccessResponse(c, v)
}

// Register lists a new vehicle
func (h *Handler) Register(c *gin.Context) {
	var req CreateVehicleRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	v, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to register vehicle")
		return
	}
	common.CreatedResponse(c, v)
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
