package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/service"
)

// QuoteHandler handles HTTP requests for price quotes.
type QuoteHandler struct {
	reservationService *service.ReservationService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(reservationService *service.ReservationService) *QuoteHandler {
	return &QuoteHandler{reservationService: reservationService}
}

// QuoteRequest is the HTTP request body for pricing an interval.
type QuoteRequest struct {
	VehicleID  string             `json:"vehicle_id"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	Passengers int                `json:"passengers"`
	AddOns     []AddOnPayload     `json:"add_ons,omitempty"`
	RouteStops []RouteStopPayload `json:"route_stops,omitempty"`
}

// Quote handles POST /v1/quotes
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	stops, ok := serviceStops(req.RouteStops)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid estimated_time, expected RFC 3339"})
		return
	}

	breakdown, err := h.reservationService.Quote(c.Request.Context(), service.QuoteRequest{
		VehicleID:  req.VehicleID,
		Start:      req.StartTime,
		End:        req.EndTime,
		Passengers: req.Passengers,
		AddOns:     serviceAddOns(req.AddOns),
		RouteStops: stops,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, breakdown)
}
