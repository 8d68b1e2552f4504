package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coopfund/internal/services"
)

// statusFor maps service error kinds onto HTTP statuses. Validation problems
// are 400, state-machine conflicts 409, balance and cap rejections 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrZeroAddress),
		errors.Is(err, services.ErrZeroAmount),
		errors.Is(err, services.ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrAlreadySettled),
		errors.Is(err, services.ErrBadTransition),
		errors.Is(err, services.ErrMembershipInactive),
		errors.Is(err, services.ErrWouldLeaveWithoutAdmin):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrExceedsPerUserCap),
		errors.Is(err, services.ErrExceedsDailyCap),
		errors.Is(err, services.ErrInsufficientCustody),
		errors.Is(err, services.ErrInsufficientReserve),
		errors.Is(err, services.ErrInsufficientVaultBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
