package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/repository"
	"fleet/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRequesterID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidReservationID),
		errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrStartInPast),
		errors.Is(err, service.ErrInvalidPassengers),
		errors.Is(err, service.ErrPassengersExceedCapacity),
		errors.Is(err, service.ErrInvalidStopOrder),
		errors.Is(err, service.ErrInvalidVehicle),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrMissingTariff):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrCapacityConflict),
		errors.Is(err, service.ErrVehicleNotBookable),
		errors.Is(err, service.ErrActivePaymentExists),
		errors.Is(err, repository.ErrDraftOnly),
		service.IsInvalidTransition(err):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrCancellationWindow),
		errors.Is(err, service.ErrNotPermitted):
		return http.StatusForbidden

	// Unauthorized
	case errors.Is(err, service.ErrSignatureInvalid):
		return http.StatusUnauthorized

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
