package middleware

import (
	"net/http"
	"strings"

	"identity-service/internal/claims"
	"identity-service/internal/identity"
	"identity-service/internal/model"
	"identity-service/internal/store"
	"identity-service/pkg/jwtutil"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys set by the guard.
const (
	ContextUID     = "uid"
	ContextEmail   = "email"
	ContextScope   = "scope"
	ContextProfile = "profile"
)

// ViewTenantHeader selects an impersonated view tenant. Honored only for
// super-admin sessions, and only for reads.
const ViewTenantHeader = "X-View-Tenant"

// Guard is the server-side request filter in front of privileged endpoints.
// It verifies the bearer token with the identity provider, loads the
// caller's profile and enforces the privilege check. The caller's tenant is
// always derived from that profile, never from the request body.
type Guard struct {
	provider identity.Provider
	profiles store.ProfileStore
}

func NewGuard(provider identity.Provider, profiles store.ProfileStore) *Guard {
	return &Guard{provider: provider, profiles: profiles}
}

// Authenticate validates the bearer token and stores the verified identity
// and its claims snapshot in the request context.
func (g *Guard) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}
		tokenString := parts[1]

		user, err := g.provider.VerifyToken(c.Request().Context(), tokenString)
		if err != nil {
			// The verification error itself never reaches the caller.
			log.Error("Token verification failed", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// The claims snapshot rides inside the token; it is advisory only.
		// A token the provider accepted but whose snapshot cannot be
		// decoded just resolves through the profile fallback.
		scope := claims.Payload{}
		if sc, err := jwtutil.ValidateToken(tokenString); err == nil {
			scope = sc.Scope
		}

		c.Set(ContextUID, user.UID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextScope, scope)
		return next(c)
	}
}

// RequirePrivileged loads the caller's profile by the verified email and
// rejects callers without Admin/Management access or the Owner role. An
// authenticated identity with no profile has no tenant and no privilege.
func (g *Guard) RequirePrivileged(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		email, _ := c.Get(ContextEmail).(string)
		profile, err := g.profiles.GetProfileByEmail(c.Request().Context(), email)
		if err != nil {
			log.Error("Profile lookup for guard failed",
				zap.String("email", email), zap.Error(err))
			prometheus.RecordAuthError("profile_not_found")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
		}

		if !profile.Privileged() {
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
		}

		c.Set(ContextProfile, profile)
		return next(c)
	}
}

// RequireSuperAdmin re-reads the stored claims and rejects sessions whose
// account does not hold the super-admin flag right now. The snapshot in the
// token is advisory only; checking it here would let a revoked super-admin
// keep platform power for the remaining token lifetime.
func (g *Guard) RequireSuperAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		uid, _ := c.Get(ContextUID).(string)
		current, err := g.provider.GetClaims(c.Request().Context(), uid)
		if err != nil {
			log.Error("Claims lookup for guard failed",
				zap.String("uid", uid), zap.Error(err))
			prometheus.RecordAuthError("claims_lookup_failed")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
		}
		if !current.SuperAdmin {
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
		}

		// Downstream sees the authoritative claims, not the snapshot.
		c.Set(ContextScope, current)
		return next(c)
	}
}

// BlockImpersonatedWrites rejects mutations issued while a super-admin is
// viewing another tenant. Impersonation is a read overlay; allowing writes
// under it would attribute foreign-tenant mutations to a session whose own
// claims say otherwise.
func (g *Guard) BlockImpersonatedWrites(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		method := c.Request().Method
		if method == http.MethodGet || method == http.MethodHead {
			return next(c)
		}

		scope, _ := c.Get(ContextScope).(claims.Payload)
		viewTenant := c.Request().Header.Get(ViewTenantHeader)
		if scope.SuperAdmin && viewTenant != "" && viewTenant != scope.TenantID {
			prometheus.RecordAuthError("impersonated_write")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "writes are disabled while impersonating"})
		}
		return next(c)
	}
}

// CallerProfile returns the profile the guard attached to the context.
func CallerProfile(c echo.Context) (model.Profile, bool) {
	profile, ok := c.Get(ContextProfile).(model.Profile)
	return profile, ok
}

// CallerScope returns the claims snapshot the guard attached to the context.
func CallerScope(c echo.Context) claims.Payload {
	scope, _ := c.Get(ContextScope).(claims.Payload)
	return scope
}

// CallerUID returns the verified identity UID.
func CallerUID(c echo.Context) string {
	uid, _ := c.Get(ContextUID).(string)
	return uid
}
