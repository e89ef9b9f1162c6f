package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/paperhub/admindata/pkg/admindata"
	"github.com/paperhub/admindata/pkg/api/errors"
	"github.com/paperhub/admindata/pkg/models"
)

// AdminHandler serves the admin dashboard data endpoints on top of the
// admindata service. Degraded-mode reads and writes are indistinguishable
// from real ones at this level.
type AdminHandler struct {
	service   *admindata.Service
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service *admindata.Service) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: validator.New(),
	}
}

// ListPartners returns the cached partner collection
func (h *AdminHandler) ListPartners(c echo.Context) error {
	partners, err := h.service.Partners(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, partners)
}

// ListEarnings returns the cached earning collection
func (h *AdminHandler) ListEarnings(c echo.Context) error {
	earnings, err := h.service.Earnings(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, earnings)
}

// ListDisputes returns the cached dispute collection
func (h *AdminHandler) ListDisputes(c echo.Context) error {
	disputes, err := h.service.Disputes(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, disputes)
}

// ListArbitrators returns the cached arbitrator roster
func (h *AdminHandler) ListArbitrators(c echo.Context) error {
	arbitrators, err := h.service.Arbitrators(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, arbitrators)
}

// GetStats returns the derived aggregates over the cached collections
func (h *AdminHandler) GetStats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// UpdatePartner applies a partial partner update
func (h *AdminHandler) UpdatePartner(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return errors.ValidationError(c, err)
	}

	var req models.UpdatePartnerRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	partner, err := h.service.UpdatePartner(c.Request().Context(), id, req.Patch())
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, partner)
}

// MarkEarningPaid marks a single earning as paid out
func (h *AdminHandler) MarkEarningPaid(c echo.Context) error {
	var req models.MarkEarningPaidRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	if err := h.service.MarkEarningPaid(c.Request().Context(), req.EarningID); err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "earning marked as paid"})
}

// AssignArbitrator assigns an arbitrator to a dispute
func (h *AdminHandler) AssignArbitrator(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return errors.ValidationError(c, err)
	}

	var req models.AssignArbitratorRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	dispute, err := h.service.AssignArbitrator(c.Request().Context(), id, req.ArbitratorID)
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, dispute)
}

// ResolveDispute closes a dispute with a result text
func (h *AdminHandler) ResolveDispute(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return errors.ValidationError(c, err)
	}

	var req models.ResolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	dispute, err := h.service.ResolveDispute(c.Request().Context(), id, req.Result)
	if err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, dispute)
}

// Refresh invalidates and refetches one entity type, or all of them when
// the entity parameter is "all"
func (h *AdminHandler) Refresh(c echo.Context) error {
	entity := c.Param("entity")

	if entity == "all" {
		if err := h.service.Refresh(c.Request().Context()); err != nil {
			return errors.Domain(c, err)
		}
		return c.JSON(http.StatusOK, models.MessageResponse{Message: "all collections refreshed"})
	}

	if err := h.service.Invalidate(entity); err != nil {
		return errors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: entity + " invalidated"})
}
