package handler

import (
	"errors"
	"net/http"

	"identity-service/internal/middleware"
	"identity-service/internal/model"
	"identity-service/internal/resolver"
	"identity-service/internal/store"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantContext reports the resolved tenant scope for the current session,
// honoring the impersonation header for super-admins. Degenerate states come
// back as a neutral scope with a reason, never as an error page: the UI must
// render an empty result set, and support needs to tell a provisioning race
// from a broken profile.
func (h *Handler) TenantContext(c echo.Context) error {
	log := logger.FromContext(c)

	uid := middleware.CallerUID(c)
	payload := middleware.CallerScope(c)

	scope, err := h.resolver.Resolve(c.Request().Context(), payload, uid)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProfileNotFound):
			log.Error("Session has no profile", zap.String("uid", uid))
			return c.JSON(http.StatusOK, echo.Map{"scope": scope, "reason": "profile_missing"})
		case errors.Is(err, resolver.ErrNoTenant):
			return c.JSON(http.StatusOK, echo.Map{"scope": scope, "reason": "no_tenant"})
		}
		log.Error("Tenant resolution failed", zap.String("uid", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolution failed"})
	}

	scope = h.resolver.WithViewTenant(scope, payload, c.Request().Header.Get(middleware.ViewTenantHeader))
	return c.JSON(http.StatusOK, echo.Map{"scope": scope})
}

// GetTenant returns tenant metadata. Callers see their own tenant; a
// super-admin may address any tenant through the impersonation overlay.
func (h *Handler) GetTenant(c echo.Context) error {
	log := logger.FromContext(c)

	uid := middleware.CallerUID(c)
	payload := middleware.CallerScope(c)
	id := c.Param("id")

	scope, err := h.resolver.Resolve(c.Request().Context(), payload, uid)
	if err != nil {
		prometheus.RecordAuthError("no_tenant_scope")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}
	scope = h.resolver.WithViewTenant(scope, payload, c.Request().Header.Get(middleware.ViewTenantHeader))

	if id != scope.TenantID {
		prometheus.RecordAuthError("cross_tenant_read")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	}

	tenant, err := h.tenants.GetTenant(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Tenant lookup failed", zap.String("tenant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// CreateTenant onboards a new company. Platform-level operation, routed
// behind RequireSuperAdmin.
func (h *Handler) CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		ID           string `json:"id"`
		DisplayName  string `json:"display_name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		BrandColor   string `json:"brand_color"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.ID == "" || req.DisplayName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id and display_name are required"})
	}

	tenant := model.Tenant{
		ID:           req.ID,
		DisplayName:  req.DisplayName,
		Status:       model.TenantActive,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		BrandColor:   req.BrandColor,
	}
	if err := h.tenants.CreateTenant(c.Request().Context(), &tenant); err != nil {
		if errors.Is(err, store.ErrTenantExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "tenant id already taken"})
		}
		log.Error("Tenant creation failed", zap.String("tenant_id", req.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	log.Info("Tenant created", zap.String("tenant_id", tenant.ID), zap.String("display_name", tenant.DisplayName))
	return c.JSON(http.StatusCreated, tenant)
}

// DeleteTenant removes the tenant record. Deliberately non-cascading: staff
// profiles and business documents referencing the tenant survive as orphans.
func (h *Handler) DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)

	id := c.Param("id")
	survivors, err := h.tenants.CountTenantProfiles(c.Request().Context(), id)
	if err != nil {
		log.Error("Profile count before tenant delete failed", zap.String("tenant_id", id), zap.Error(err))
	}

	if err := h.tenants.DeleteTenant(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Tenant delete failed", zap.String("tenant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	if survivors > 0 {
		log.Warn("Tenant deleted; dependent profiles were NOT deleted",
			zap.String("tenant_id", id),
			zap.Int64("orphaned_profiles", survivors))
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": id, "orphaned_profiles": survivors})
}
