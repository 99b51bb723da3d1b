package deliveries

import (
	"net/http"

	"delivery-tracking/internal/models"
	"delivery-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for deliveries.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new delivery handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Assign handles POST /orders/:orderId/delivery requests. Order identity is
// resolved by the caller (the order service); this endpoint only receives
// the resulting order id.
func (h *Handler) Assign(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "missing order ID")
	}

	var req models.AssignDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	delivery, err := h.svc.Assign(c.Request().Context(), orderID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, delivery)
}

// Get handles GET /deliveries/:deliveryId requests.
func (h *Handler) Get(c echo.Context) error {
	delivery, err := h.svc.Get(c.Request().Context(), c.Param("deliveryId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, delivery)
}

// UpdateStatus handles PATCH /deliveries/:deliveryId/status requests.
func (h *Handler) UpdateStatus(c echo.Context) error {
	var req models.UpdateDeliveryStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	delivery, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("deliveryId"), req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, delivery)
}

// GetStatus handles GET /deliveries/:deliveryId/status requests, the
// read-path snapshot for tracking clients.
func (h *Handler) GetStatus(c echo.Context) error {
	snap, err := h.svc.TrackingSnapshot(c.Request().Context(), c.Param("deliveryId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, snap)
}

// Delete handles DELETE /deliveries/:deliveryId requests (admin cleanup).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("deliveryId")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
