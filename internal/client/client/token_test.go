package client

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp *time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "7"}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Minute)

	exp, err := TokenExpiry(signed(t, &later))
	require.NoError(t, err)
	assert.True(t, exp.Equal(later))

	exp, err = TokenExpiry(signed(t, &earlier))
	require.NoError(t, err)
	assert.True(t, exp.Before(now))
}

func TestTokenExpiry_Invalid(t *testing.T) {
	_, err := TokenExpiry("not-a-jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = TokenExpiry(signed(t, nil))
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = TokenExpiry("")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
