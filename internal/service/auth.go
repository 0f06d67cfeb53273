// Package service implements the account lifecycle: registration, email
// verification, login with lockout, token refresh, password reset, and the
// rank promotion rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/polyblog/backend/internal/config"
	"github.com/polyblog/backend/internal/db"
	mailer "github.com/polyblog/backend/internal/mail"
	"github.com/polyblog/backend/internal/model"
	"github.com/polyblog/backend/internal/security"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50

	unverifiedAccountTTL = 24 * time.Hour

	defaultRoleName = "user"
	defaultRankName = "newbie"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrCodeInvalid        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailDelivery      = errors.New("email delivery failed")
	ErrNotFound           = errors.New("not found")
)

// Store is the persistence surface the orchestrator needs. *db.Postgres
// satisfies it; tests use an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	LoadRoleRank(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id int64) error

	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	GetRankByName(ctx context.Context, name string) (*model.Rank, error)

	SetVerificationChallenge(ctx context.Context, userID int64, codeHash, token string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, userID int64) error

	RecordFailedLogin(ctx context.Context, email string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	RecordSuccessfulLogin(ctx context.Context, userID int64) error
	SetRefreshTokenID(ctx context.Context, userID int64, tokenID *string) error

	SetPasswordReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
}

// TokenPair is what a successful login, verification or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	store  Store
	tokens *security.TokenIssuer
	mailer mailer.Mailer

	codeTTL     time.Duration
	resetTTL    time.Duration
	frontendURL string

	now func() time.Time
}

func NewAuthService(store Store, tokens *security.TokenIssuer, m mailer.Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		store:       store,
		tokens:      tokens,
		mailer:      m,
		codeTTL:     cfg.Auth.CodeTTL,
		resetTTL:    cfg.Auth.ResetTokenTTL,
		frontendURL: strings.TrimRight(cfg.FrontendBaseURL, "/"),
		now:         time.Now,
	}
}

func (s *AuthService) Tokens() *security.TokenIssuer { return s.tokens }

// Register creates a pending account and emails its verification code.
// Registering an email that exists but was never verified acts as a resend.
// If the verification mail cannot be sent the new account is removed, so a
// failed registration can simply be retried.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	lang := mailer.NormalizeLang(req.Language)

	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !db.IsNoRows(err) {
		return nil, err
	}
	if existing != nil {
		if existing.EmailVerified {
			return nil, ErrEmailTaken
		}
		if err := s.issueVerification(ctx, existing, lang); err != nil {
			return nil, err
		}
		return existing, nil
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	code, err := security.GenerateCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := security.HashCode(code)
	if err != nil {
		return nil, err
	}
	verifyToken, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(req.FullName),
		Bio:           strings.TrimSpace(req.Bio),
		PreferredLang: lang,
		IsActive:      false,
		EmailVerified: false,
	}
	codeExpiry := now.Add(s.codeTTL)
	accountExpiry := now.Add(unverifiedAccountTTL)
	user.VerificationCodeHash = &codeHash
	user.VerificationToken = &verifyToken
	user.VerificationExpiresAt = &codeExpiry
	user.AccountExpiresAt = &accountExpiry

	if role, err := s.store.GetRoleByName(ctx, defaultRoleName); err == nil {
		user.RoleID = &role.ID
		user.Role = role
	} else if !db.IsNoRows(err) {
		return nil, err
	}
	if rank, err := s.store.GetRankByName(ctx, defaultRankName); err == nil {
		user.RankID = &rank.ID
		user.Rank = rank
	} else if !db.IsNoRows(err) {
		return nil, err
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		switch db.UniqueViolation(err) {
		case "users_email_key":
			return nil, ErrEmailTaken
		case "users_username_key":
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	created.Role = user.Role
	created.Rank = user.Rank

	msg := mailer.VerificationMessage(lang, created.Email, created.Username, code)
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("[Auth] verification mail to %s failed: %v", created.Email, err)
		if delErr := s.store.DeleteUser(ctx, created.ID); delErr != nil {
			log.Printf("[Auth] rollback of user %d failed: %v", created.ID, delErr)
		}
		return nil, ErrEmailDelivery
	}
	return created, nil
}

// VerifyEmail checks the code against the pending challenge and activates
// the account. A successful verification logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*model.User, *TokenPair, error) {
	email = normalizeEmail(email)
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrCodeInvalid
		}
		return nil, nil, err
	}
	if user.EmailVerified {
		return nil, nil, ErrAlreadyVerified
	}
	if user.VerificationCodeHash == nil || user.VerificationExpiresAt == nil {
		return nil, nil, ErrCodeInvalid
	}
	if s.now().After(*user.VerificationExpiresAt) {
		return nil, nil, ErrCodeExpired
	}
	if !security.CheckCode(code, *user.VerificationCodeHash) {
		return nil, nil, ErrCodeInvalid
	}

	if err := s.store.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, nil, err
	}
	user.EmailVerified = true
	user.IsActive = true
	user.VerificationCodeHash = nil
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil
	user.AccountExpiresAt = nil

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.LoadRoleRank(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ResendVerification regenerates the challenge for an unverified account.
// The response is identical whether or not the email is registered.
func (s *AuthService) ResendVerification(ctx context.Context, email, lang string) error {
	email = normalizeEmail(email)
	lang = mailer.NormalizeLang(lang)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueVerification(ctx, user, lang)
}

// issueVerification overwrites any previous challenge, so the code sent
// before this one stops working.
func (s *AuthService) issueVerification(ctx context.Context, user *model.User, lang string) error {
	code, err := security.GenerateCode()
	if err != nil {
		return err
	}
	codeHash, err := security.HashCode(code)
	if err != nil {
		return err
	}
	token, err := security.GenerateToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.codeTTL)
	if err := s.store.SetVerificationChallenge(ctx, user.ID, codeHash, token, expiresAt); err != nil {
		return err
	}
	user.VerificationCodeHash = &codeHash
	user.VerificationToken = &token
	user.VerificationExpiresAt = &expiresAt

	msg := mailer.VerificationMessage(lang, user.Email, user.Username, code)
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("[Auth] verification mail to %s failed: %v", user.Email, err)
		return ErrEmailDelivery
	}
	return nil
}

// Login validates credentials under the lockout rules and starts a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	now := s.now()
	if user.LockStateAt(now) == model.LockActive {
		return nil, nil, ErrAccountLocked
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		attempts, lockedUntil, err := s.store.RecordFailedLogin(ctx, email, maxFailedLogins, now.Add(lockoutDuration))
		if err != nil {
			return nil, nil, err
		}
		if lockedUntil != nil && lockedUntil.After(now) {
			log.Printf("[Auth] account %s locked after %d failed attempts", email, attempts)
			return nil, nil, ErrAccountLocked
		}
		return nil, nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}
	if !user.IsActive {
		return nil, nil, ErrForbidden
	}

	if err := s.store.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, nil, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	lastLogin := now
	user.LastLoginAt = &lastLogin

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.LoadRoleRank(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the session. The presented token's ID must match the one
// stored at issue time, so a refresh token works exactly once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.User, *TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if user.RefreshTokenID == nil || *user.RefreshTokenID != claims.ID {
		return nil, nil, ErrInvalidToken
	}
	if !user.IsActive || !user.EmailVerified {
		return nil, nil, ErrInvalidToken
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.LoadRoleRank(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the stored refresh token ID. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.store.SetRefreshTokenID(ctx, userID, nil)
}

// RequestPasswordReset mails a reset link to a verified account. Unknown or
// unverified emails get the same success response.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, lang string) error {
	email = normalizeEmail(email)
	lang = mailer.NormalizeLang(lang)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil
		}
		return err
	}
	if !user.EmailVerified || !user.IsActive {
		return nil
	}

	token, err := security.GenerateToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.resetTTL)
	if err := s.store.SetPasswordReset(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s", s.frontendURL, token, user.Email)
	msg := mailer.ResetMessage(lang, user.Email, user.Username, link)
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("[Auth] reset mail to %s failed: %v", user.Email, err)
		return ErrEmailDelivery
	}
	return nil
}

// ConfirmPasswordReset consumes the reset token and installs the new
// password. It also clears any lockout, since the owner just proved control
// of the mailbox.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	email = normalizeEmail(email)
	if err := security.ValidatePasswordStrength(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrInvalidToken
		}
		return err
	}
	if user.PasswordResetToken == nil || user.PasswordResetExpiresAt == nil {
		return ErrInvalidToken
	}
	if s.now().After(*user.PasswordResetExpiresAt) {
		return ErrInvalidToken
	}
	if !security.TokensEqual(token, *user.PasswordResetToken) {
		return ErrInvalidToken
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.ResetPassword(ctx, user.ID, hash)
}

// GetUser loads a user with role and rank resolved, for /auth/me.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.store.LoadRoleRank(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// startSession issues a fresh token pair and persists the refresh token ID,
// invalidating whatever refresh token was live before.
func (s *AuthService) startSession(ctx context.Context, user *model.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRefreshTokenID(ctx, user.ID, &jti); err != nil {
		return nil, err
	}
	user.RefreshTokenID = &jti
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
