package handler

import (
	"context"

	"identity-service/internal/claims"
	"identity-service/internal/middleware"
	"identity-service/internal/ownership"
	"identity-service/internal/provision"
	"identity-service/internal/resolver"
	"identity-service/internal/store"

	"github.com/labstack/echo/v4"
)

// Authenticator is the session-facing slice of the local identity provider.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Activate(ctx context.Context, token, password string) error
	RefreshToken(ctx context.Context, uid string) (string, error)
}

// Handler carries the constructed services. Everything is injected; there
// are no package-level singletons behind these methods.
type Handler struct {
	auth        Authenticator
	sync        *claims.Synchronizer
	resolver    *resolver.Resolver
	provisioner *provision.Provisioner
	transfer    *ownership.Service
	profiles    store.ProfileStore
	tenants     store.TenantStore
}

func NewHandler(
	auth Authenticator,
	sync *claims.Synchronizer,
	res *resolver.Resolver,
	provisioner *provision.Provisioner,
	transfer *ownership.Service,
	profiles store.ProfileStore,
	tenants store.TenantStore,
) *Handler {
	return &Handler{
		auth:        auth,
		sync:        sync,
		resolver:    res,
		provisioner: provisioner,
		transfer:    transfer,
		profiles:    profiles,
		tenants:     tenants,
	}
}

// Register wires the HTTP surface onto the echo instance.
func (h *Handler) Register(e *echo.Echo, guard *middleware.Guard) {
	// Public routes - no authentication required
	e.GET("/health", HealthCheck)
	e.GET("/metrics", MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/activate", h.Activate)

	// Authenticated, caller-scoped routes
	session := e.Group("")
	session.Use(guard.Authenticate)
	session.POST("/claims/sync", h.SyncClaims)
	session.GET("/tenant/context", h.TenantContext)
	session.GET("/tenants/:id", h.GetTenant)

	// Super-admin only. The flag is re-read from storage per request so a
	// revocation takes effect immediately, not at token expiry.
	admin := e.Group("")
	admin.Use(guard.Authenticate)
	admin.Use(guard.BlockImpersonatedWrites)
	admin.Use(guard.RequireSuperAdmin)
	admin.POST("/super-admin", h.SetSuperAdmin)
	admin.POST("/tenants", h.CreateTenant)
	admin.DELETE("/tenants/:id", h.DeleteTenant)

	// Privileged mutations - full guard chain
	privileged := e.Group("")
	privileged.Use(guard.Authenticate)
	privileged.Use(guard.BlockImpersonatedWrites)
	privileged.Use(guard.RequirePrivileged)
	privileged.POST("/staff", h.CreateStaff)
	privileged.POST("/client-role", h.SetClientRole)
	privileged.POST("/tenants/ownership/transfer", h.TransferOwnership)
}
