package handler

import (
	"errors"
	"net/http"

	"identity-service/internal/identity"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Login authenticates an activated identity and returns a session token
// embedding the stored claims.
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_login")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	token, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUserDisabled) {
			log.Warn("Login attempt on disabled identity", zap.String("email", req.Email))
			prometheus.RecordAuthError("user_disabled")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account not activated"})
		}
		log.Warn("Login failed", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in", zap.String("email", req.Email))
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// Activate redeems a one-time activation link, establishes the password and
// enables the identity.
func (h *Handler) Activate(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and password are required"})
	}

	if err := h.auth.Activate(c.Request().Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, identity.ErrActivationInvalid) {
			prometheus.RecordAuthError("activation_invalid")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "activation link invalid or expired"})
		}
		log.Error("Activation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}

	log.Info("Identity activated")
	return c.JSON(http.StatusOK, echo.Map{"message": "account activated, you can now log in"})
}
