package utils

import (
	"errors"
	"net/http"

	"delivery-tracking/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

// RespondWithError writes a JSON error body with the given status code.
func RespondWithError(c echo.Context, code int, message string) error {
	return c.JSON(code, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service-layer sentinel errors onto HTTP statuses so
// every failure reaches the client with a specific reason.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, models.ErrNotFound.Error())
	case errors.Is(err, models.ErrDuplicateAssignment):
		return RespondWithError(c, http.StatusConflict, models.ErrDuplicateAssignment.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		return RespondWithError(c, http.StatusConflict, models.ErrInvalidTransition.Error())
	case errors.Is(err, models.ErrDriverUnavailable):
		return RespondWithError(c, http.StatusConflict, models.ErrDriverUnavailable.Error())
	case errors.Is(err, models.ErrUnknownStatus):
		return RespondWithError(c, http.StatusBadRequest, models.ErrUnknownStatus.Error())
	case errors.Is(err, models.ErrInvalidCoordinates):
		return RespondWithError(c, http.StatusBadRequest, models.ErrInvalidCoordinates.Error())
	case errors.Is(err, models.ErrStoreUnavailable):
		return RespondWithError(c, http.StatusServiceUnavailable, models.ErrStoreUnavailable.Error())
	default:
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}
