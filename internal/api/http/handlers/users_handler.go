package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// UsersHandler exposes signup, login and account self-service endpoints.
type UsersHandler struct {
	auth          *service.AuthService
	cookieName    string
	cookieTTL     time.Duration
	secureCookies bool
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cfg config.AuthConfig, production bool) *UsersHandler {
	return &UsersHandler{
		auth:          authService,
		cookieName:    cfg.CookieName,
		cookieTTL:     time.Duration(cfg.CookieTTLDays) * 24 * time.Hour,
		secureCookies: production,
	}
}

// Signup handles POST /api/v1/users/signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Signup(c.Context(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusCreated, user, token, exp)
}

// Login handles POST /api/v1/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token, exp)
}

// ForgotPassword handles POST /api/v1/users/forgotPassword.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	resetURLBase := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/", c.Protocol(), c.Hostname())
	if err := h.auth.ForgotPassword(c.Context(), req.Email, resetURLBase); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "token sent to email",
	})
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/:token.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.ResetPassword(c.Context(), c.Params("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token, exp)
}

// UpdatePassword handles PATCH /api/v1/users/updateMyPassword.
func (h *UsersHandler) UpdatePassword(c *fiber.Ctx) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewNotAuthenticated("you are not logged in")
	}

	var req dto.UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.UpdatePassword(c.Context(), principal.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token, exp)
}

// GetMe handles GET /api/v1/users/me.
func (h *UsersHandler) GetMe(c *fiber.Ctx) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewNotAuthenticated("you are not logged in")
	}
	return sendEnvelope(c, http.StatusOK, principal, nil)
}

// UpdateMe handles PATCH /api/v1/users/me. Password updates are rejected
// here; they go through updateMyPassword.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewNotAuthenticated("you are not logged in")
	}

	raw := map[string]any{}
	if err := c.BodyParser(&raw); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if _, found := raw["password"]; found {
		return apperrors.NewValidationError("this route is not for password updates, use /updateMyPassword", nil)
	}

	var req dto.UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.UpdateMe(c.Context(), principal.ID, req.Name, req.Email, req.Photo)
	if err != nil {
		return err
	}
	return sendEnvelope(c, http.StatusOK, user, nil)
}

// DeleteMe handles DELETE /api/v1/users/me, deactivating the account.
func (h *UsersHandler) DeleteMe(c *fiber.Ctx) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewNotAuthenticated("you are not logged in")
	}
	if err := h.auth.DeactivateMe(c.Context(), principal.ID); err != nil {
		return err
	}
	return sendEnvelope(c, http.StatusNoContent, nil, nil)
}

func (h *UsersHandler) sendToken(c *fiber.Ctx, status int, user *domain.User, token string, exp time.Time) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  time.Now().Add(h.cookieTTL),
		HTTPOnly: true,
		Secure:   h.secureCookies,
	})

	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"auth":   dto.AuthResponse{Token: token, ExpiresAt: exp},
		"data":   fiber.Map{"user": user},
	})
}
