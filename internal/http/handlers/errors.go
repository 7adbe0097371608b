package handlers

import (
	"errors"
	"net/http"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps a sentinel to its HTTP status. Unknown errors are 500.
var statusFor = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidEmail, http.StatusBadRequest},
	{domain.ErrWeakPassword, http.StatusBadRequest},
	{domain.ErrReferralInvalidFormat, http.StatusBadRequest},
	{domain.ErrAlreadyRegistered, http.StatusConflict},
	{domain.ErrAlreadyReferred, http.StatusConflict},
	{domain.ErrSelfReferral, http.StatusConflict},
	{domain.ErrFederatedAccount, http.StatusConflict},
	{domain.ErrCodeExpired, http.StatusGone},
	{domain.ErrReferralNotFound, http.StatusNotFound},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrFederatedTokenInvalid, http.StatusUnauthorized},
	{domain.ErrNotifierUnavailable, http.StatusBadGateway},
	{domain.ErrIdentifierSpaceExhausted, http.StatusServiceUnavailable},
	{domain.ErrStoreConflict, http.StatusServiceUnavailable},
}

// writeError renders err in the {"error": ...} envelope. Typed errors add
// the field a client needs to retry.
func writeError(c *gin.Context, err error) {
	var (
		limited *domain.RateLimitedError
		locked  *domain.LockedError
		invalid *domain.InvalidCodeError
	)
	switch {
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "retry_at": limited.RetryAt.UTC()})
		return
	case errors.As(err, &locked):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error(), "locked_until": locked.Until.UTC()})
		return
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "attempts_remaining": invalid.Remaining})
		return
	}

	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
