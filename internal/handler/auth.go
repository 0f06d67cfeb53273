// Package handler exposes the HTTP surface: gin handlers, the cookie-based
// auth middleware, CORS and per-endpoint rate limits.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/polyblog/backend/internal/model"
	"github.com/polyblog/backend/internal/security"
	"github.com/polyblog/backend/internal/service"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"

	accessCookiePath  = "/"
	refreshCookiePath = "/api/v1/auth"
)

// CookieConfig controls the attributes of both session cookies.
type CookieConfig struct {
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	AccessAge  int
	RefreshAge int
}

type AuthHandler struct {
	svc     *service.AuthService
	cookies CookieConfig
}

func NewAuthHandler(svc *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

// Register godoc
// @Summary Register a new account
// @Description Creates a pending account and emails a 6-digit verification code. Re-registering an unverified email resends the code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration data"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.AuthResponse{
		User:    userResponse(user),
		Message: "verification code sent",
	})
}

// VerifyEmail godoc
// @Summary Verify email address
// @Description Activates the account when the code matches and logs the user in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.VerifyEmailRequest true "Email and code"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req model.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	user, pair, err := h.svc.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, model.AuthResponse{
		User:    userResponse(user),
		Message: "email verified",
	})
}

// ResendVerification godoc
// @Summary Resend the verification code
// @Description Always returns success; a code is only sent when the email belongs to an unverified account.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ResendVerificationRequest true "Email"
// @Success 200 {object} model.APIResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req model.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	if err := h.svc.ResendVerification(c.Request.Context(), req.Email, req.Language); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Success: true,
		Code:    "auth.verification_sent",
		Message: "if the account exists, a verification code has been sent",
	})
}

// Login godoc
// @Summary Login
// @Description Sets the access and refresh token cookies on success.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 423 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, model.AuthResponse{
		User:    userResponse(user),
		Message: "logged in",
	})
}

// Refresh godoc
// @Summary Rotate the session tokens
// @Description Uses the refresh_token cookie; the previous refresh token stops working.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)
	user, pair, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, model.AuthResponse{
		User:    userResponse(user),
		Message: "session refreshed",
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh token (if present) and clears both cookies.
// @Tags auth
// @Produce json
// @Success 200 {object} model.APIResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshCookieName); err == nil && refreshToken != "" {
		if claims, err := h.svc.Tokens().Verify(refreshToken, security.TokenTypeRefresh); err == nil {
			if userID, err := claims.UserID(); err == nil {
				_ = h.svc.Logout(c.Request.Context(), userID)
			}
		}
	}
	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, model.APIResponse{
		Success: true,
		Code:    "auth.logged_out",
		Message: "logged out",
	})
}

// PasswordResetRequest godoc
// @Summary Request a password reset
// @Description Always returns success; a reset link is only sent to verified accounts.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.PasswordResetRequest true "Email"
// @Success 200 {object} model.APIResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/auth/password-reset-request [post]
func (h *AuthHandler) PasswordResetRequest(c *gin.Context) {
	var req model.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email, req.Language); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Success: true,
		Code:    "auth.reset_requested",
		Message: "if the account exists, a reset link has been sent",
	})
}

// PasswordResetConfirm godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.PasswordResetConfirmRequest true "Email, token and new password"
// @Success 200 {object} model.APIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/password-reset-confirm [post]
func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var req model.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	if err := h.svc.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Success: true,
		Code:    "auth.password_reset",
		Message: "password updated",
	})
}

// Me godoc
// @Summary Get the current user
// @Tags auth
// @Produce json
// @Success 200 {object} model.UserResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	auth := GetAuthUser(c)
	if auth == nil {
		writeAuthError(c, service.ErrInvalidToken)
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), auth.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, pair *service.TokenPair) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(accessCookieName, pair.AccessToken, h.cookies.AccessAge, accessCookiePath, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshCookieName, pair.RefreshToken, h.cookies.RefreshAge, refreshCookiePath, h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(accessCookieName, "", -1, accessCookiePath, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, h.cookies.Domain, h.cookies.Secure, true)
}

func userResponse(u *model.User) model.UserResponse {
	resp := model.UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		Bio:           u.Bio,
		Role:          service.DisplayRole(u),
		Rank:          service.DisplayRank(u),
		Permissions:   service.Permissions(u),
		TotalComments: u.TotalComments,
		TotalLikes:    u.TotalLikesReceived,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
	if u.Rank != nil {
		resp.RankIcon = u.Rank.Icon
	}
	return resp
}

// writeAuthError maps service errors onto HTTP statuses and stable
// translation codes in one place.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "auth.invalid_input", err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(c, http.StatusConflict, "auth.email_taken", "email already registered")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(c, http.StatusConflict, "auth.username_taken", "username already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "auth.invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrAccountLocked):
		writeError(c, http.StatusLocked, "auth.account_locked", "account temporarily locked, try again later")
	case errors.Is(err, service.ErrEmailNotVerified):
		writeError(c, http.StatusBadRequest, "auth.email_not_verified", "email not verified")
	case errors.Is(err, service.ErrAlreadyVerified):
		writeError(c, http.StatusBadRequest, "auth.already_verified", "email already verified")
	case errors.Is(err, service.ErrCodeInvalid), errors.Is(err, service.ErrCodeExpired):
		writeError(c, http.StatusBadRequest, "auth.code_invalid", "invalid or expired verification code")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(c, http.StatusUnauthorized, "auth.invalid_token", "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, "auth.forbidden", "forbidden")
	case errors.Is(err, service.ErrEmailDelivery):
		writeError(c, http.StatusBadGateway, "auth.email_delivery", "could not send email, try again later")
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "common.not_found", "not found")
	default:
		writeError(c, http.StatusInternalServerError, "common.server_error", "server error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, model.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}
