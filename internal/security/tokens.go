package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by both token kinds. TokenType keeps a leaked refresh token
// from being accepted where an access token is expected, and vice versa.
type Claims struct {
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenIssuer mints and validates HS256 session tokens. It is stateless
// beyond the signing secret, which is injected once at startup.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccessToken mints a short-lived access token for the user.
func (t *TokenIssuer) IssueAccessToken(userID int64, email string) (string, error) {
	token, _, err := t.issue(userID, email, TokenTypeAccess, t.accessTTL)
	return token, err
}

// IssueRefreshToken mints a refresh token and returns it with its token ID,
// which the caller persists so that rotation invalidates the previous token.
func (t *TokenIssuer) IssueRefreshToken(userID int64) (string, string, error) {
	return t.issue(userID, "", TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenIssuer) issue(userID int64, email, tokenType string, ttl time.Duration) (string, string, error) {
	now := t.now()
	jti := uuid.NewString()
	claims := Claims{
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Verify checks signature, token type and expiry. Every failure mode comes
// back as ErrInvalidToken so callers treat them uniformly as unauthenticated.
func (t *TokenIssuer) Verify(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
