package handler

import (
	"errors"
	"net/http"

	"identity-service/internal/claims"
	"identity-service/internal/middleware"
	"identity-service/internal/model"
	"identity-service/internal/store"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SyncClaims re-derives the caller's claims from their own profile and
// returns a freshly minted token so the session does not keep running on
// the stale snapshot.
func (h *Handler) SyncClaims(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.ClaimsSyncCounter.Inc()

	uid := middleware.CallerUID(c)
	payload, err := h.sync.SyncClaims(c.Request().Context(), uid)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProfileNotFound):
			prometheus.RecordAuthError("profile_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no profile for identity"})
		case errors.Is(err, claims.ErrMissingTenant):
			prometheus.RecordAuthError("missing_tenant")
			return c.JSON(http.StatusConflict, echo.Map{"error": "profile has no tenant yet"})
		}
		log.Error("Claims sync failed", zap.String("uid", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claims sync failed"})
	}

	token, err := h.auth.RefreshToken(c.Request().Context(), uid)
	if err != nil {
		// Claims are stored; the session just keeps its stale token until
		// expiry, which is the bounded window the sync contract allows.
		log.Warn("Token refresh after sync failed", zap.String("uid", uid), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"claims": payload})
	}

	return c.JSON(http.StatusOK, echo.Map{"claims": payload, "token": token})
}

// SetClientRole pins the fixed client claim pair onto a profile in the
// caller's own tenant.
func (h *Handler) SetClientRole(c echo.Context) error {
	log := logger.FromContext(c)

	caller, ok := middleware.CallerProfile(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	target, err := h.profiles.GetProfile(c.Request().Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		log.Error("Profile lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	// Mutations only ever target the caller's own tenant.
	if target.TenantID != caller.TenantID {
		prometheus.RecordAuthError("cross_tenant_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}

	if err := h.profiles.SetRole(c.Request().Context(), req.UserID, model.RoleClientStaff, model.AccessClientStaff); err != nil {
		log.Error("Client role update failed", zap.String("uid", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	if _, err := h.sync.SyncClaims(c.Request().Context(), req.UserID); err != nil {
		log.Warn("Claims re-sync after client role change failed",
			zap.String("uid", req.UserID), zap.Error(err))
	}

	log.Info("Client role set", zap.String("uid", req.UserID), zap.String("tenant_id", caller.TenantID))
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":      req.UserID,
		"role":         model.RoleClientStaff,
		"access_level": model.AccessClientStaff,
	})
}

// SetSuperAdmin flips the cross-tenant operator flag on an identity. Routed
// behind RequireSuperAdmin, so only an account currently holding the flag may
// call it; bootstrap happens out-of-band.
func (h *Handler) SetSuperAdmin(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID  string `json:"user_id"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	if err := h.sync.SetSuperAdmin(c.Request().Context(), req.UserID, req.Enabled); err != nil {
		log.Error("Super-admin update failed", zap.String("uid", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user_id": req.UserID, "super_admin": req.Enabled})
}
