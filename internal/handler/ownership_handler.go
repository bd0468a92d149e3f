package handler

import (
	"errors"
	"net/http"

	"identity-service/internal/middleware"
	"identity-service/internal/ownership"
	"identity-service/internal/store"
	"identity-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TransferOwnership swaps the Owner role between two profiles of the
// caller's tenant. The tenant is the caller's own; the body only names the
// two parties.
func (h *Handler) TransferOwnership(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerProfile(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}

	var req struct {
		CurrentOwnerID string `json:"current_owner_id"`
		NewOwnerID     string `json:"new_owner_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.CurrentOwnerID == "" || req.NewOwnerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_owner_id and new_owner_id are required"})
	}

	err := h.transfer.Transfer(c.Request().Context(), caller.TenantID, req.CurrentOwnerID, req.NewOwnerID)
	if err != nil {
		switch {
		case errors.Is(err, ownership.ErrSameProfile):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "current and new owner must differ"})
		case errors.Is(err, ownership.ErrNotOwner):
			return c.JSON(http.StatusConflict, echo.Map{"error": "named profile is not the current owner"})
		case errors.Is(err, ownership.ErrWrongTenant):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
		case errors.Is(err, store.ErrProfileNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		case errors.Is(err, ownership.ErrDemoteFailed):
			// Two owners right now; retrying the transfer repairs it.
			log.Error("Transfer demote step failed",
				zap.String("tenant_id", caller.TenantID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "transfer partially applied, retry to complete",
			})
		}
		log.Error("Ownership transfer failed",
			zap.String("tenant_id", caller.TenantID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transfer failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant_id": caller.TenantID,
		"new_owner": req.NewOwnerID,
	})
}
