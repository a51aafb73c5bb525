package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicleService *service.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleService *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// TariffPayload carries a vehicle tariff over the wire.
type TariffPayload struct {
	HourlyRate    float64 `json:"hourly_rate"`
	DailyRate     float64 `json:"daily_rate"`
	WeeklyRate    float64 `json:"weekly_rate"`
	PerKmRate     float64 `json:"per_km_rate"`
	PerMinuteRate float64 `json:"per_minute_rate"`
	MinimumFare   float64 `json:"minimum_fare"`
	ExtraStopRate float64 `json:"extra_stop_rate"`
}

// CreateVehicleRequest is the HTTP request body for registering a vehicle.
type CreateVehicleRequest struct {
	Name     string        `json:"name"`
	Category string        `json:"category"` // SEDAN, SUV, VAN, BUS
	Capacity int           `json:"capacity"`
	Location string        `json:"location"`
	Tariff   TariffPayload `json:"tariff"`
}

// UpdateVehicleStatusRequest is the HTTP request body for changing availability.
type UpdateVehicleStatusRequest struct {
	Status string `json:"status"` // AVAILABLE, UNAVAILABLE
}

// VehicleResponse is the HTTP representation of a vehicle.
type VehicleResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Capacity int           `json:"capacity"`
	Location string        `json:"location"`
	Tariff   TariffPayload `json:"tariff"`
	Status   string        `json:"status"`
	Active   bool          `json:"active"`
}

func vehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:       v.ID,
		Name:     v.Name,
		Category: string(v.Category),
		Capacity: v.Capacity,
		Location: v.Location,
		Tariff: TariffPayload{
			HourlyRate:    v.Tariff.HourlyRate,
			DailyRate:     v.Tariff.DailyRate,
			WeeklyRate:    v.Tariff.WeeklyRate,
			PerKmRate:     v.Tariff.PerKmRate,
			PerMinuteRate: v.Tariff.PerMinuteRate,
			MinimumFare:   v.Tariff.MinimumFare,
			ExtraStopRate: v.Tariff.ExtraStopRate,
		},
		Status: string(v.Status),
		Active: v.Active,
	}
}

// CreateVehicle handles POST /v1/vehicles
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	vehicle, err := h.vehicleService.CreateVehicle(c.Request.Context(), service.CreateVehicleRequest{
		Name:     req.Name,
		Category: domain.VehicleCategory(req.Category),
		Capacity: req.Capacity,
		Location: req.Location,
		Tariff: domain.Tariff{
			HourlyRate:    req.Tariff.HourlyRate,
			DailyRate:     req.Tariff.DailyRate,
			WeeklyRate:    req.Tariff.WeeklyRate,
			PerKmRate:     req.Tariff.PerKmRate,
			PerMinuteRate: req.Tariff.PerMinuteRate,
			MinimumFare:   req.Tariff.MinimumFare,
			ExtraStopRate: req.Tariff.ExtraStopRate,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, vehicleResponse(vehicle))
}

// GetVehicle handles GET /v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, vehicleResponse(vehicle))
}

// GetAll handles GET /v1/vehicles
func (h *VehicleHandler) GetAll(c *gin.Context) {
	vehicles, err := h.vehicleService.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		response = append(response, vehicleResponse(v))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateStatus handles PATCH /v1/vehicles/:id/status
func (h *VehicleHandler) UpdateStatus(c *gin.Context) {
	var req UpdateVehicleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	if err := h.vehicleService.UpdateStatus(c.Request.Context(), id, domain.VehicleStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
