package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundtrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueAccessToken(42, "a@example.com")
	require.NoError(t, err)

	claims, err := issuer.Verify(token, TokenTypeAccess)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenCarriesTokenID(t *testing.T) {
	issuer := newTestIssuer()

	token, jti, err := issuer.IssueRefreshToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := issuer.Verify(token, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	issuer := newTestIssuer()

	access, err := issuer.IssueAccessToken(42, "a@example.com")
	require.NoError(t, err)
	refresh, _, err := issuer.IssueRefreshToken(42)
	require.NoError(t, err)

	_, err = issuer.Verify(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Verify(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := newTestIssuer()
	token, err := issuer.IssueAccessToken(42, "a@example.com")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err = issuer.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := newTestIssuer().IssueAccessToken(42, "a@example.com")
	require.NoError(t, err)

	other := NewTokenIssuer("another-secret-another-secret-xx", 15*time.Minute, time.Hour)
	_, err = other.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer()
	_, err := issuer.Verify("not.a.jwt", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Verify("", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
