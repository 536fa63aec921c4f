package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)

	assert.NoError(t, CheckPassword(hash, "admin123"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, CheckPassword("not-a-hash", "admin123"))
}

func TestTokenIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "test")

	tests := []struct {
		name      string
		username  string
		role      string
		companyID string
	}{
		{"user", "alice", RoleUser, "acme"},
		{"admin", "admin", RoleAdmin, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.Issue(tt.username, tt.role, tt.companyID)
			require.NoError(t, err)

			claims, err := m.Parse(token)
			require.NoError(t, err)
			assert.Equal(t, tt.username, claims.Subject)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.companyID, claims.CompanyID)
			assert.Equal(t, tt.role == RoleAdmin, claims.IsAdmin())
		})
	}
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "test")
	token, err := m.Issue("alice", RoleUser, "acme")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", time.Hour, "test").Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenManager("secret", time.Hour, "test")
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		claims := Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Role: RoleUser})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleUser, claims.Role)
}
