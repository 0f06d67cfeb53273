package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyblog/backend/internal/config"
	"github.com/polyblog/backend/internal/mail"
	"github.com/polyblog/backend/internal/model"
	"github.com/polyblog/backend/internal/security"
	"github.com/polyblog/backend/internal/service"
)

// memStore is just enough of service.Store for the HTTP-level tests.
type memStore struct {
	users map[string]*model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func (s *memStore) addVerifiedUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	u := &model.User{
		ID:            int64(len(s.users) + 1),
		Username:      strings.Split(email, "@")[0],
		Email:         email,
		PasswordHash:  hash,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	s.users[email] = u
	return u
}

func (s *memStore) byID(id int64) *model.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *memStore) CreateUser(_ context.Context, u *model.User) (*model.User, error) {
	clone := *u
	clone.ID = int64(len(s.users) + 1)
	s.users[u.Email] = &clone
	out := clone
	return &out, nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u := s.byID(id); u != nil {
		out := *u
		return &out, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s.users[email]; ok {
		out := *u
		return &out, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) LoadRoleRank(_ context.Context, _ *model.User) error { return nil }

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	if u := s.byID(id); u != nil {
		delete(s.users, u.Email)
	}
	return nil
}

func (s *memStore) GetRoleByName(_ context.Context, _ string) (*model.Role, error) {
	return nil, pgx.ErrNoRows
}

func (s *memStore) GetRankByName(_ context.Context, _ string) (*model.Rank, error) {
	return nil, pgx.ErrNoRows
}

func (s *memStore) SetVerificationChallenge(_ context.Context, userID int64, codeHash, token string, expiresAt time.Time) error {
	if u := s.byID(userID); u != nil {
		u.VerificationCodeHash = &codeHash
		u.VerificationToken = &token
		u.VerificationExpiresAt = &expiresAt
	}
	return nil
}

func (s *memStore) MarkEmailVerified(_ context.Context, userID int64) error {
	if u := s.byID(userID); u != nil {
		u.EmailVerified = true
		u.IsActive = true
		u.VerificationCodeHash = nil
	}
	return nil
}

func (s *memStore) RecordFailedLogin(_ context.Context, email string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	u, ok := s.users[email]
	if !ok {
		return 0, nil, pgx.ErrNoRows
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold && (u.LockedUntil == nil || !u.LockedUntil.After(time.Now())) {
		until := lockUntil
		u.LockedUntil = &until
	}
	return u.FailedLoginAttempts, u.LockedUntil, nil
}

func (s *memStore) RecordSuccessfulLogin(_ context.Context, userID int64) error {
	if u := s.byID(userID); u != nil {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (s *memStore) SetRefreshTokenID(_ context.Context, userID int64, tokenID *string) error {
	if u := s.byID(userID); u != nil {
		u.RefreshTokenID = tokenID
	}
	return nil
}

func (s *memStore) SetPasswordReset(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	if u := s.byID(userID); u != nil {
		u.PasswordResetToken = &token
		u.PasswordResetExpiresAt = &expiresAt
	}
	return nil
}

func (s *memStore) ResetPassword(_ context.Context, userID int64, passwordHash string) error {
	if u := s.byID(userID); u != nil {
		u.PasswordHash = passwordHash
		u.PasswordResetToken = nil
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			CodeTTL:       15 * time.Minute,
			ResetTokenTTL: 30 * time.Minute,
		},
		FrontendBaseURL: "http://localhost:4321",
	}
	tokens := security.NewTokenIssuer("0123456789abcdef0123456789abcdef", 15*time.Minute, 7*24*time.Hour)
	svc := service.NewAuthService(store, tokens, mail.LogMailer{}, cfg)

	authHandler := NewAuthHandler(svc, CookieConfig{
		Secure:     false,
		SameSite:   http.SameSiteLaxMode,
		AccessAge:  int((15 * time.Minute).Seconds()),
		RefreshAge: int((7 * 24 * time.Hour).Seconds()),
	})
	requireAuth := AuthMiddleware(svc)

	router := gin.New()
	auth := router.Group("/api/v1/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/resend-verification", authHandler.ResendVerification)
	auth.GET("/me", requireAuth, authHandler.Me)
	return router, store
}

func doJSON(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func cookieByName(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	res := w.Result()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestLoginSetsBothCookies(t *testing.T) {
	router, store := newTestRouter(t)
	store.addVerifiedUser(t, "a@example.com", "Str0ng!pass")

	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusOK, w.Code)

	access := cookieByName(t, w, accessCookieName)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.NotEmpty(t, access.Value)

	refresh := cookieByName(t, w, refreshCookieName)
	assert.Equal(t, "/api/v1/auth", refresh.Path)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, refresh.Value)
}

func TestLoginErrorMapping(t *testing.T) {
	router, store := newTestRouter(t)
	user := store.addVerifiedUser(t, "a@example.com", "Str0ng!pass")

	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	until := time.Now().Add(30 * time.Minute)
	user.LockedUntil = &until
	w = doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"Str0ng!pass"}`)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Contains(t, w.Body.String(), "auth.account_locked")
}

func TestResendVerificationAlwaysSucceeds(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/resend-verification", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth.verification_sent")
}

func TestMeRequiresAuth(t *testing.T) {
	router, store := newTestRouter(t)
	store.addVerifiedUser(t, "a@example.com", "Str0ng!pass")

	w := doJSON(router, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusOK, login.Code)
	access := cookieByName(t, login, accessCookieName)

	w = doJSON(router, http.MethodGet, "/api/v1/auth/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a@example.com"`)
}

func TestRefreshRotatesCookie(t *testing.T) {
	router, store := newTestRouter(t)
	store.addVerifiedUser(t, "a@example.com", "Str0ng!pass")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"Str0ng!pass"}`)
	require.Equal(t, http.StatusOK, login.Code)
	oldRefresh := cookieByName(t, login, refreshCookieName)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", oldRefresh)
	require.Equal(t, http.StatusOK, w.Code)
	newRefresh := cookieByName(t, w, refreshCookieName)
	assert.NotEqual(t, oldRefresh.Value, newRefresh.Value)

	// The pre-rotation cookie no longer refreshes.
	w = doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", oldRefresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookiesAndRevokes(t *testing.T) {
	router, store := newTestRouter(t)
	store.addVerifiedUser(t, "a@example.com", "Str0ng!pass")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"Str0ng!pass"}`)
	refresh := cookieByName(t, login, refreshCookieName)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/logout", "", refresh)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := cookieByName(t, w, refreshCookieName)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
