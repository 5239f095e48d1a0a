package pricing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/middleware"
	"github.com/chalosawari/chalo-sawari/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles public HTTP requests for pricing
type Handler struct {
	service *Service
}

// NewHandler creates a new pricing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ResolveResponse is a resolved record and the cascade step that produced it
type ResolveResponse struct {
	Record *PricingRecord `json:"record"`
	Source ResolveSource  `json:"source"`
}

// RegisterRoutes registers public pricing routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/pricing")
	{
		p.GET("/resolve", h.Resolve)
		p.GET("/snapshot", h.Snapshot)
		p.POST("/fare", h.Fare)
		p.POST("/estimate", h.Estimate)
	}
	rg.GET("/vehicles/:id/pricing", h.VehiclePricing)
}

// Resolve returns the pricing record for a vehicle type and model
func (h *Handler) Resolve(c *gin.Context) {
	var query ResolveQuery
	if !middleware.ValidateAndBindQuery(c, &query) {
		return
	}

	rec, source, err := h.service.Resolve(c.Request.Context(), query.Key())
	if err != nil {
		respondError(c, err, "failed to resolve pricing")
		return
	}
	if rec == nil {
		respondNotConfigured(c)
		return
	}
	common.SuccessResponse(c, ResolveResponse{Record: rec, Source: source})
}

// Snapshot returns the rate data clients use to preview fares
func (h *Handler) Snapshot(c *gin.Context) {
	var query ResolveQuery
	if !middleware.ValidateAndBindQuery(c, &query) {
		return
	}

	snap, err := h.service.Snapshot(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "failed to load pricing snapshot")
		return
	}
	common.SuccessResponse(c, snap)
}

// Fare prices a trip of a known distance
func (h *Handler) Fare(c *gin.Context) {
	var req FareRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to calculate fare")
		return
	}
	common.SuccessResponse(c, quote)
}

// Estimate prices a trip between two places
func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	quote, err := h.service.Estimate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to estimate fare")
		return
	}
	common.SuccessResponse(c, quote)
}

// VehiclePricing resolves pricing for a listed vehicle. With distance_km it
// also prices the trip.
func (h *Handler) VehiclePricing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid vehicle ID")
		return
	}

	tripType := fare.TripType(c.DefaultQuery("trip_type", string(fare.TripOneWay)))
	if !tripType.Valid() {
		common.ErrorResponse(c, http.StatusBadRequest, "trip_type must be one of one-way, return")
		return
	}

	if raw := c.Query("distance_km"); raw != "" {
		km, err := strconv.ParseFloat(raw, 64)
		if err != nil || km < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "distance_km must be a non-negative number")
			return
		}
		includeTax := c.Query("include_tax") == "true"

		quote, err := h.service.QuoteForVehicle(c.Request.Context(), id, tripType, km, includeTax)
		if err != nil {
			respondError(c, err, "failed to calculate fare")
			return
		}
		common.SuccessResponse(c, quote)
		return
	}

	rec, source, err := h.service.ResolveForVehicle(c.Request.Context(), id, tripType)
	if err != nil {
		respondError(c, err, "failed to resolve pricing")
		return
	}
	if rec == nil {
		respondNotConfigured(c)
		return
	}
	common.SuccessResponse(c, ResolveResponse{Record: rec, Source: source})
}

func respondNotConfigured(c *gin.Context) {
	common.ErrorResponseWithCode(c, http.StatusNotFound, "PRICING_NOT_CONFIGURED",
		"pricing not configured for this vehicle, contact support", nil)
}

func respondError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrPricingUnavailable) {
		respondNotConfigured(c)
		return
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		middleware.RespondWithValidationError(c, verr)
		return
	}
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
