package client

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT without verifying its
// signature. The client cannot verify server tokens; the expiry is only used
// to decide whether a stored session is still worth keeping.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", common.ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}
