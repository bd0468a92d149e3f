package handler

import (
	"errors"
	"net/http"

	"identity-service/internal/middleware"
	"identity-service/internal/provision"
	"identity-service/internal/store"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateStaff provisions a new staff member into the caller's tenant. The
// tenant comes from the caller's guarded profile; a tenant_id supplied in
// the body is not even bound, so a privileged-but-malicious client cannot
// write into a foreign tenant.
func (h *Handler) CreateStaff(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.ProvisionCounter.Inc()

	caller, ok := middleware.CallerProfile(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}

	var req provision.Input
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Email == "" || req.Role == "" || req.AccessLevel == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email, role and access_level are required"})
	}

	result, err := h.provisioner.Provision(c.Request().Context(), caller.TenantID, caller.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, provision.ErrAlreadyExists):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "a staff member with this email already exists",
			})
		case errors.Is(err, provision.ErrTenantSuspended):
			return c.JSON(http.StatusConflict, echo.Map{"error": "tenant is suspended"})
		case errors.Is(err, store.ErrTenantNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Provisioning failed",
			zap.String("tenant_id", caller.TenantID),
			zap.String("email", req.Email),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "provisioning failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user_id": result.UserID,
		"email":   result.Email,
	})
}
