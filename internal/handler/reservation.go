package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ReservationHandler handles HTTP requests for reservations.
type ReservationHandler struct {
	reservationService *service.ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(reservationService *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// AddOnPayload selects an add-on by id.
type AddOnPayload struct {
	AddOnID  string `json:"add_on_id"`
	Quantity int    `json:"quantity"`
}

// RouteStopPayload is one requested waypoint.
type RouteStopPayload struct {
	OrderIndex    int     `json:"order_index"`
	Location      string  `json:"location"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	EstimatedTime string  `json:"estimated_time,omitempty"` // RFC 3339
}

// CreateReservationRequest is the HTTP request body for creating a reservation.
type CreateReservationRequest struct {
	RequesterID    string             `json:"requester_id"`
	VehicleID      string             `json:"vehicle_id"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	Passengers     int                `json:"passengers"`
	AddOns         []AddOnPayload     `json:"add_ons,omitempty"`
	RouteStops     []RouteStopPayload `json:"route_stops,omitempty"`
	SpecialRequest string             `json:"special_request,omitempty"`
}

// TransitionRequest is the HTTP request body for a lifecycle transition.
type TransitionRequest struct {
	Target     string `json:"target"`
	Reason     string `json:"reason,omitempty"`
	ActorID    string `json:"actor_id"`
	Privileged bool   `json:"privileged,omitempty"`
}

// CancelReservationRequest is the HTTP request body for cancelling.
type CancelReservationRequest struct {
	Reason     string `json:"reason"`
	ActorID    string `json:"actor_id"`
	Privileged bool   `json:"privileged,omitempty"`
}

// ReservationResponse is the HTTP representation of a reservation.
type ReservationResponse struct {
	ID             string  `json:"id"`
	Reference      string  `json:"reference"`
	RequesterID    string  `json:"requester_id"`
	VehicleID      string  `json:"vehicle_id"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Passengers     int     `json:"passengers"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"payment_status"`
	BasePrice      float64 `json:"base_price"`
	AddOnPrice     float64 `json:"add_on_price"`
	TaxAmount      float64 `json:"tax_amount"`
	TotalPrice     float64 `json:"total_price"`
	SpecialRequest string  `json:"special_request,omitempty"`
	CancelledAt    string  `json:"cancelled_at,omitempty"`
	CancelReason   string  `json:"cancel_reason,omitempty"`
	RefundAmount   float64 `json:"refund_amount,omitempty"`
}

// CreateReservationResponse is the HTTP response for creating a reservation.
type CreateReservationResponse struct {
	Reservation      ReservationResponse    `json:"reservation"`
	Breakdown        *domain.PriceBreakdown `json:"breakdown"`
	PaymentInitiated bool                   `json:"payment_initiated"`
	ClientSecret     string                 `json:"client_secret,omitempty"`
}

func reservationResponse(r *domain.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:             r.ID,
		Reference:      r.Reference,
		RequesterID:    r.RequesterID,
		VehicleID:      r.VehicleID,
		StartTime:      r.StartTime.Format(time.RFC3339),
		EndTime:        r.EndTime.Format(time.RFC3339),
		Passengers:     r.Passengers,
		Status:         string(r.Status),
		PaymentStatus:  string(r.PaymentStatus),
		BasePrice:      r.BasePrice,
		AddOnPrice:     r.AddOnPrice,
		TaxAmount:      r.TaxAmount,
		TotalPrice:     r.TotalPrice,
		SpecialRequest: r.SpecialRequest,
	}

	if !r.CancelledAt.IsZero() {
		resp.CancelledAt = r.CancelledAt.Format(time.RFC3339)
		resp.CancelReason = r.CancelReason
		resp.RefundAmount = r.RefundAmount
	}

	return resp
}

func serviceStops(stops []RouteStopPayload) ([]service.RouteStopRequest, bool) {
	out := make([]service.RouteStopRequest, len(stops))
	for i, stop := range stops {
		var estimated time.Time
		if stop.EstimatedTime != "" {
			t, err := time.Parse(time.RFC3339, stop.EstimatedTime)
			if err != nil {
				return nil, false
			}
			estimated = t
		}
		out[i] = service.RouteStopRequest{
			OrderIndex:    stop.OrderIndex,
			Location:      stop.Location,
			Lat:           stop.Lat,
			Lng:           stop.Lng,
			EstimatedTime: estimated,
		}
	}
	return out, true
}

func serviceAddOns(addOns []AddOnPayload) []service.AddOnSelectionRequest {
	out := make([]service.AddOnSelectionRequest, len(addOns))
	for i, a := range addOns {
		out[i] = service.AddOnSelectionRequest{AddOnID: a.AddOnID, Quantity: a.Quantity}
	}
	return out
}

// CreateReservation handles POST /v1/reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	stops, ok := serviceStops(req.RouteStops)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid estimated_time, expected RFC 3339"})
		return
	}

	result, err := h.reservationService.CreateReservation(c.Request.Context(), service.CreateReservationRequest{
		RequesterID:    req.RequesterID,
		VehicleID:      req.VehicleID,
		Start:          req.StartTime,
		End:            req.EndTime,
		Passengers:     req.Passengers,
		AddOns:         serviceAddOns(req.AddOns),
		RouteStops:     stops,
		SpecialRequest: req.SpecialRequest,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateReservationResponse{
		Reservation:      reservationResponse(result.Reservation),
		Breakdown:        result.Breakdown,
		PaymentInitiated: result.PaymentInitiated,
		ClientSecret:     result.ClientSecret,
	})
}

// GetReservation handles GET /v1/reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	reservation, err := h.reservationService.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, reservationResponse(reservation))
}

// GetAll handles GET /v1/reservations
func (h *ReservationHandler) GetAll(c *gin.Context) {
	reservations, err := h.reservationService.ListReservations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		response = append(response, reservationResponse(r))
	}

	c.JSON(http.StatusOK, response)
}

// Cancel handles POST /v1/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	var req CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reservation, err := h.reservationService.Transition(c.Request.Context(), service.TransitionRequest{
		ReservationID: c.Param("id"),
		Target:        domain.ReservationStatusCancelled,
		Reason:        req.Reason,
		Actor:         service.Actor{ID: req.ActorID, Privileged: req.Privileged},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, reservationResponse(reservation))
}

// Transition handles POST /v1/reservations/:id/transition
func (h *ReservationHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reservation, err := h.reservationService.Transition(c.Request.Context(), service.TransitionRequest{
		ReservationID: c.Param("id"),
		Target:        domain.ReservationStatus(req.Target),
		Reason:        req.Reason,
		Actor:         service.Actor{ID: req.ActorID, Privileged: req.Privileged},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, reservationResponse(reservation))
}

// DeleteDraft handles DELETE /v1/reservations/:id
func (h *ReservationHandler) DeleteDraft(c *gin.Context) {
	if err := h.reservationService.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
